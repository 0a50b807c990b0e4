// Package diagram renders the truss geometry and the optimization history,
// as terminal ASCII art and as exported image files.
package diagram

import (
	"fmt"
	"strings"

	"github.com/alexiusacademia/gotruss/internal/solver"
	"github.com/alexiusacademia/gotruss/internal/truss"
	"github.com/guptarohit/asciigraph"
)

const (
	sketchWidth  = 61
	sketchHeight = 17
)

// DrawTruss sketches the two members between the supports and the loaded
// apex, annotated with the sizing numbers.
func DrawTruss(x truss.Design, c truss.Constants) string {
	grid := make([][]rune, sketchHeight)
	for i := range grid {
		grid[i] = make([]rune, sketchWidth)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	set := func(col, row int, r rune) {
		if row >= 0 && row < sketchHeight && col >= 0 && col < sketchWidth {
			grid[row][col] = r
		}
	}

	apexCol, apexRow := sketchWidth/2, 2
	baseRow := sketchHeight - 2

	// Sample both members densely enough that every row gets a mark.
	for _, support := range []int{0, sketchWidth - 1} {
		steps := 4 * sketchHeight
		for s := 0; s <= steps; s++ {
			f := float64(s) / float64(steps)
			col := int(float64(support)+f*float64(apexCol-support) + 0.5)
			row := int(float64(baseRow)+f*float64(apexRow-baseRow) + 0.5)
			mark := '\\'
			if support == 0 {
				mark = '/'
			}
			set(col, row, mark)
		}
	}

	set(apexCol, apexRow, 'o')
	set(0, baseRow, '^')
	set(sketchWidth-1, baseRow, '^')
	// Load arrow pointing down at the apex.
	set(apexCol, 0, 'P')
	set(apexCol, 1, '↓')

	var b strings.Builder
	b.WriteString("\nTRUSS GEOMETRY:\n")
	for _, row := range grid {
		b.WriteString(strings.TrimRight(string(row), " "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "B = %.3f m   H = %.3f m   d = %.4f m   t = %.4f m\n",
		c.BaseWidth, x.Height, x.Diameter, c.Thickness)
	return b.String()
}

// DrawHistory charts the cost of every iterate. Empty history yields an
// empty string so callers can print unconditionally.
func DrawHistory(history []solver.Iteration) string {
	if len(history) == 0 {
		return ""
	}
	costs := make([]float64, len(history))
	for i, it := range history {
		costs[i] = it.Cost
	}
	width := len(costs) * 4
	if width > 70 {
		width = 70
	}
	chart := asciigraph.Plot(costs,
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Caption("cost (kg) per iteration"),
	)
	return "\nCONVERGENCE:\n" + chart + "\n"
}
