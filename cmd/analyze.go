package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alexiusacademia/gotruss/internal/diagram"
	"github.com/alexiusacademia/gotruss/internal/truss"
	"github.com/spf13/cobra"
)

var (
	anaBaseWidth     float64
	anaThickness     float64
	anaElasticity    float64
	anaLoad          float64
	anaDensity       float64
	anaStressMax     float64
	anaDeflectionMax float64

	anaHeight   float64
	anaDiameter float64

	anaSensitivities bool
	anaShowDiagram   bool
	anaExportFile    string
	anaJSONFile      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate one truss design against the limits",
	Long: `Evaluate a single design point (H, d): compute the member geometry,
axial stress, Euler buckling stress, apex deflection, and material
cost, and check each response against its allowable limit.

No optimization is performed; this is the check an engineer runs on a
design already in hand.

Examples:
  # Check a 0.35 m tall truss with 14 mm tubes
  gotruss analyze --height 0.35 --diameter 0.014

  # Include design sensitivities
  gotruss analyze --height 0.35 --diameter 0.014 --sensitivities`,
	Run: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Physical constants
	analyzeCmd.Flags().Float64VarP(&anaBaseWidth, "base-width", "B", 1.0, "Distance between supports B (m)")
	analyzeCmd.Flags().Float64VarP(&anaThickness, "thickness", "t", 0.01, "Tube wall thickness t (m)")
	analyzeCmd.Flags().Float64VarP(&anaElasticity, "elasticity", "E", 2.0e11, "Modulus of elasticity E (Pa)")
	analyzeCmd.Flags().Float64VarP(&anaLoad, "load", "P", 1.0e5, "Downward apex load P (N)")
	analyzeCmd.Flags().Float64Var(&anaDensity, "density", 7850, "Material density (kg/m³)")
	analyzeCmd.Flags().Float64Var(&anaStressMax, "stress-max", 2.0e8, "Allowable axial stress (Pa)")
	analyzeCmd.Flags().Float64Var(&anaDeflectionMax, "deflection-max", 0.01, "Allowable apex deflection (m)")

	// Design point
	analyzeCmd.Flags().Float64VarP(&anaHeight, "height", "H", 0, "Apex height H (m) [required]")
	analyzeCmd.Flags().Float64VarP(&anaDiameter, "diameter", "d", 0, "Tube diameter d (m) [required]")
	analyzeCmd.MarkFlagRequired("height")
	analyzeCmd.MarkFlagRequired("diameter")

	// Output options
	analyzeCmd.Flags().BoolVar(&anaSensitivities, "sensitivities", false, "Show design sensitivities of every response")
	analyzeCmd.Flags().BoolVar(&anaShowDiagram, "diagram", false, "Show ASCII sketch of the truss")
	analyzeCmd.Flags().StringVarP(&anaExportFile, "output", "o", "", "Export geometry diagram to file (png, svg, pdf)")
	analyzeCmd.Flags().StringVar(&anaJSONFile, "json", "", "Write the analysis record to a JSON file")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	c := truss.Constants{
		BaseWidth:     anaBaseWidth,
		Thickness:     anaThickness,
		Elasticity:    anaElasticity,
		Load:          anaLoad,
		Density:       anaDensity,
		StressMax:     anaStressMax,
		DeflectionMax: anaDeflectionMax,
	}
	x := truss.Design{Height: anaHeight, Diameter: anaDiameter}

	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	q, err := truss.Evaluate(x, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	m := truss.EvalMargins(q, c)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("     TWO-BAR TRUSS ANALYSIS")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	fmt.Println("DESIGN POINT:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Apex Height (H):\t%.5f m\n", x.Height)
	fmt.Fprintf(w, "  Tube Diameter (d):\t%.5f m\n", x.Diameter)
	fmt.Fprintf(w, "  Member Length (L):\t%.5f m\n", q.Length)
	fmt.Fprintf(w, "  Tube Area (A):\t%.6g m²\n", q.Area)
	fmt.Fprintf(w, "  Material Cost:\t%.4f kg\n", q.Cost)
	w.Flush()
	fmt.Println()

	printResponseTable(q, m, c)

	if anaSensitivities {
		if err := printSensitivities(x, c); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Println("RESULT:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	feasible := m.Feasible(truss.FeasTolerance)
	if feasible {
		fmt.Println("  ╔═════════════════════════════════════════╗")
		fmt.Println("  ║  DESIGN IS FEASIBLE                     ║")
		fmt.Println("  ╚═════════════════════════════════════════╝")
	} else {
		fmt.Println("  ╔═════════════════════════════════════════╗")
		fmt.Println("  ║  DESIGN VIOLATES THE LIMITS             ║")
		fmt.Println("  ╚═════════════════════════════════════════╝")
		fmt.Println()
		fmt.Printf("  Worst violation: %.4g\n", m.MaxViolation())
	}
	fmt.Println()

	if anaShowDiagram {
		fmt.Println(diagram.DrawTruss(x, c))
	}
	if anaExportFile != "" {
		if err := diagram.ExportGeometry(x, c, anaExportFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting diagram: %v\n", err)
		} else {
			fmt.Printf("Diagram exported to: %s\n", anaExportFile)
		}
	}
	if anaJSONFile != "" {
		record := map[string]any{
			"H":            x.Height,
			"d":            x.Diameter,
			"L":            q.Length,
			"A":            q.Area,
			"IoverA":       q.IOverA,
			"sigma":        q.Stress,
			"delta":        q.Deflection,
			"sigma_b":      q.Buckling,
			"cost":         q.Cost,
			"g_stress":     m.Stress,
			"g_buckling":   m.Buckling,
			"g_deflection": m.Deflection,
			"feasible":     feasible,
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err == nil {
			err = os.WriteFile(anaJSONFile, append(data, '\n'), 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing analysis: %v\n", err)
		} else {
			fmt.Printf("Analysis written to: %s\n", anaJSONFile)
		}
	}

	if !feasible {
		os.Exit(1)
	}
}

func printSensitivities(x truss.Design, c truss.Constants) error {
	g, err := truss.Gradient(x, c)
	if err != nil {
		return err
	}

	fmt.Println("DESIGN SENSITIVITIES:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Response\t∂/∂H\t∂/∂d\n")
	fmt.Fprintf(w, "  Cost\t%.5g\t%.5g\n", g.Cost[0], g.Cost[1])
	fmt.Fprintf(w, "  Stress\t%.5g\t%.5g\n", g.Stress[0], g.Stress[1])
	fmt.Fprintf(w, "  Deflection\t%.5g\t%.5g\n", g.Deflection[0], g.Deflection[1])
	fmt.Fprintf(w, "  Buckling\t%.5g\t%.5g\n", g.Buckling[0], g.Buckling[1])
	w.Flush()
	fmt.Println()
	return nil
}
