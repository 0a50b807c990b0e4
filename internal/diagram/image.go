package diagram

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/alexiusacademia/gotruss/internal/solver"
	"github.com/alexiusacademia/gotruss/internal/truss"
)

// ExportGeometry writes the sized truss to an image file. The format is
// taken from the extension (png, svg, pdf).
func ExportGeometry(x truss.Design, c truss.Constants, filename string) error {
	if err := checkExtension(filename); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Two-Bar Truss"
	p.X.Label.Text = "Base (m)"
	p.Y.Label.Text = "Height (m)"

	apex := plotter.XY{X: c.BaseWidth / 2, Y: x.Height}
	members := plotter.XYs{
		{X: 0, Y: 0},
		apex,
		{X: c.BaseWidth, Y: 0},
	}
	line, err := plotter.NewLine(members)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = color.Black
	p.Add(line)

	nodes, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}, apex, {X: c.BaseWidth, Y: 0}})
	if err != nil {
		return err
	}
	nodes.GlyphStyle.Radius = vg.Points(4)
	nodes.GlyphStyle.Shape = draw.CircleGlyph{}
	nodes.GlyphStyle.Color = color.RGBA{R: 178, A: 255}
	p.Add(nodes)

	p.Legend.Add(fmt.Sprintf("H=%.3f m, d=%.4f m", x.Height, x.Diameter), line)
	return p.Save(6*vg.Inch, 5*vg.Inch, filename)
}

// ExportHistory writes the cost-per-iteration curve of a run to an image
// file.
func ExportHistory(history []solver.Iteration, filename string) error {
	if err := checkExtension(filename); err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no iteration history to plot")
	}

	p := plot.New()
	p.Title.Text = "Optimization Convergence"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Cost (kg)"

	pts := make(plotter.XYs, len(history))
	for i, it := range history {
		pts[i] = plotter.XY{X: float64(it.N), Y: it.Cost}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{B: 139, A: 255}
	p.Add(line)
	p.Add(plotter.NewGrid())

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

func checkExtension(filename string) error {
	switch filepath.Ext(filename) {
	case ".png", ".svg", ".pdf":
		return nil
	}
	return fmt.Errorf("unsupported image format %q (use png, svg, or pdf)", filepath.Ext(filename))
}
