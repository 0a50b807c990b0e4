package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alexiusacademia/gotruss/internal/config"
	"github.com/alexiusacademia/gotruss/internal/diagram"
	"github.com/alexiusacademia/gotruss/internal/solver"
	"github.com/alexiusacademia/gotruss/internal/truss"
	"github.com/spf13/cobra"
)

var (
	// Problem definition
	optConfigFile    string
	optBaseWidth     float64
	optThickness     float64
	optElasticity    float64
	optLoad          float64
	optDensity       float64
	optStressMax     float64
	optDeflectionMax float64

	// Starting design
	optHeight   float64
	optDiameter float64

	// Design-variable box
	optHeightMin   float64
	optHeightMax   float64
	optDiameterMin float64
	optDiameterMax float64

	// Solver options
	optAlgorithm     string
	optMaxIterations int
	optTolerance     float64
	optFeasTolerance float64
	optFiniteDiff    bool

	// Output options
	optShowHistory bool
	optShowDiagram bool
	optExportFile  string
	optHistoryFile string
	optJSONFile    string
	optLogLevel    string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the least-cost feasible truss design",
	Long: `Minimize the material cost of a symmetric two-bar tubular truss by
choosing the apex height H and the tube diameter d, subject to:
  - axial stress within the allowable stress
  - axial stress within the Euler buckling stress
  - apex deflection within the allowable deflection
  - H and d within their box bounds

The problem can be given entirely on the command line or loaded from a
YAML file with --config; flags override the file.

Examples:
  # Optimize the default steel truss (1 m base, 100 kN load)
  gotruss optimize

  # Heavier load, tighter deflection limit
  gotruss optimize --load 2.5e5 --deflection-max 0.005

  # Load a problem file, show convergence, export the geometry
  gotruss optimize --config truss.yaml --history -o truss.png`,
	Run: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optConfigFile, "config", "f", "", "Problem definition file (YAML)")

	// Physical constants
	optimizeCmd.Flags().Float64VarP(&optBaseWidth, "base-width", "B", 1.0, "Distance between supports B (m)")
	optimizeCmd.Flags().Float64VarP(&optThickness, "thickness", "t", 0.01, "Tube wall thickness t (m)")
	optimizeCmd.Flags().Float64VarP(&optElasticity, "elasticity", "E", 2.0e11, "Modulus of elasticity E (Pa)")
	optimizeCmd.Flags().Float64VarP(&optLoad, "load", "P", 1.0e5, "Downward apex load P (N)")
	optimizeCmd.Flags().Float64Var(&optDensity, "density", 7850, "Material density (kg/m³)")
	optimizeCmd.Flags().Float64Var(&optStressMax, "stress-max", 2.0e8, "Allowable axial stress (Pa)")
	optimizeCmd.Flags().Float64Var(&optDeflectionMax, "deflection-max", 0.01, "Allowable apex deflection (m)")

	// Starting design
	optimizeCmd.Flags().Float64Var(&optHeight, "height", 1.0, "Starting apex height H (m)")
	optimizeCmd.Flags().Float64VarP(&optDiameter, "diameter", "d", 0.1, "Starting tube diameter d (m)")

	// Box bounds
	optimizeCmd.Flags().Float64Var(&optHeightMin, "height-min", 0.25, "Lower bound on H (m)")
	optimizeCmd.Flags().Float64Var(&optHeightMax, "height-max", 10.0, "Upper bound on H (m)")
	optimizeCmd.Flags().Float64Var(&optDiameterMin, "diameter-min", 0.01, "Lower bound on d (m)")
	optimizeCmd.Flags().Float64Var(&optDiameterMax, "diameter-max", 0.5, "Upper bound on d (m)")

	// Solver options
	optimizeCmd.Flags().StringVarP(&optAlgorithm, "algorithm", "a", "sqp", "Solver algorithm (sqp, interior-point)")
	optimizeCmd.Flags().IntVar(&optMaxIterations, "max-iterations", 0, "Iteration cap (0 uses the solver default)")
	optimizeCmd.Flags().Float64Var(&optTolerance, "tolerance", 0, "Convergence tolerance (0 uses the solver default)")
	optimizeCmd.Flags().Float64Var(&optFeasTolerance, "feas-tolerance", 0, "Feasibility tolerance (0 uses the solver default)")
	optimizeCmd.Flags().BoolVar(&optFiniteDiff, "finite-diff", false, "Use finite-difference gradients instead of analytic ones")

	// Output options
	optimizeCmd.Flags().BoolVar(&optShowHistory, "history", false, "Show ASCII convergence plot and iteration table")
	optimizeCmd.Flags().BoolVar(&optShowDiagram, "diagram", false, "Show ASCII sketch of the optimized truss")
	optimizeCmd.Flags().StringVarP(&optExportFile, "output", "o", "", "Export geometry diagram to file (png, svg, pdf)")
	optimizeCmd.Flags().StringVar(&optHistoryFile, "history-output", "", "Export convergence plot to file (png, svg, pdf)")
	optimizeCmd.Flags().StringVar(&optJSONFile, "json", "", "Write the result record to a JSON file")
	optimizeCmd.Flags().StringVar(&optLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// buildProblem assembles the problem from the config file (when given) with
// command-line flags layered on top.
func buildProblem(cmd *cobra.Command) (*config.Problem, error) {
	var p *config.Problem
	if optConfigFile != "" {
		loaded, err := config.Load(optConfigFile)
		if err != nil {
			return nil, err
		}
		p = loaded
	} else {
		p = config.Default()
	}

	overrides := map[string]func(){
		"base-width":     func() { p.Constants.BaseWidth = optBaseWidth },
		"thickness":      func() { p.Constants.Thickness = optThickness },
		"elasticity":     func() { p.Constants.Elasticity = optElasticity },
		"load":           func() { p.Constants.Load = optLoad },
		"density":        func() { p.Constants.Density = optDensity },
		"stress-max":     func() { p.Constants.StressMax = optStressMax },
		"deflection-max": func() { p.Constants.DeflectionMax = optDeflectionMax },
		"height":         func() { p.Initial.Height = optHeight },
		"diameter":       func() { p.Initial.Diameter = optDiameter },
		"height-min":     func() { p.Bounds.HeightMin = optHeightMin },
		"height-max":     func() { p.Bounds.HeightMax = optHeightMax },
		"diameter-min":   func() { p.Bounds.DiameterMin = optDiameterMin },
		"diameter-max":   func() { p.Bounds.DiameterMax = optDiameterMax },
		"algorithm":      func() { p.Solver.Algorithm = optAlgorithm },
		"max-iterations": func() { p.Solver.MaxIterations = optMaxIterations },
		"tolerance":      func() { p.Solver.Tolerance = optTolerance },
		"feas-tolerance": func() { p.Solver.FeasTolerance = optFeasTolerance },
		"finite-diff": func() {
			useGrad := !optFiniteDiff
			p.Solver.UseGradients = &useGrad
		},
	}
	// Without a config file the flag defaults define the problem, so apply
	// everything; with one, only flags the user actually set override it.
	for name, apply := range overrides {
		if optConfigFile == "" || cmd.Flags().Changed(name) {
			apply()
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func runOptimize(cmd *cobra.Command, args []string) {
	p, err := buildProblem(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := initLogger(p.Logging, optLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() {
		_ = logger.Sync()
	}()

	driver, err := solver.New(p.TrussConstants(), p.SolverBounds(), p.SolverOptions(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	result, err := driver.Run(context.Background(), p.InitialDesign())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var domainErr *truss.DomainError
		if errors.As(err, &domainErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	consts := p.TrussConstants()
	printOptimizeReport(p, result)

	if optShowHistory {
		printHistory(result)
	}
	if optShowDiagram {
		fmt.Println(diagram.DrawTruss(result.Design, consts))
	}
	if optExportFile != "" {
		if err := diagram.ExportGeometry(result.Design, consts, optExportFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting diagram: %v\n", err)
		} else {
			fmt.Printf("Diagram exported to: %s\n", optExportFile)
		}
	}
	if optHistoryFile != "" {
		if err := diagram.ExportHistory(result.History, optHistoryFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting convergence plot: %v\n", err)
		} else {
			fmt.Printf("Convergence plot exported to: %s\n", optHistoryFile)
		}
	}
	if optJSONFile != "" {
		if err := writeJSON(result, optJSONFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing result: %v\n", err)
		} else {
			fmt.Printf("Result written to: %s\n", optJSONFile)
		}
	}

	switch result.Status {
	case solver.Converged:
		os.Exit(0)
	case solver.Infeasible, solver.MaxIterationsReached:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

func printOptimizeReport(p *config.Problem, result *solver.Result) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("     TWO-BAR TRUSS SIZING OPTIMIZATION")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	fmt.Println("PROBLEM DATA:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Base Width (B):\t%.3f m\n", p.Constants.BaseWidth)
	fmt.Fprintf(w, "  Wall Thickness (t):\t%.4f m\n", p.Constants.Thickness)
	fmt.Fprintf(w, "  Elasticity (E):\t%.4g Pa\n", p.Constants.Elasticity)
	fmt.Fprintf(w, "  Apex Load (P):\t%.4g N\n", p.Constants.Load)
	fmt.Fprintf(w, "  Density:\t%.0f kg/m³\n", p.Constants.Density)
	fmt.Fprintf(w, "  Allowable Stress:\t%.4g Pa\n", p.Constants.StressMax)
	fmt.Fprintf(w, "  Allowable Deflection:\t%.4g m\n", p.Constants.DeflectionMax)
	fmt.Fprintf(w, "  Height Bounds:\t[%.3f, %.3f] m\n", p.Bounds.HeightMin, p.Bounds.HeightMax)
	fmt.Fprintf(w, "  Diameter Bounds:\t[%.4f, %.4f] m\n", p.Bounds.DiameterMin, p.Bounds.DiameterMax)
	w.Flush()
	fmt.Println()

	fmt.Println("OPTIMIZED DESIGN:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Apex Height (H):\t%.5f m\n", result.Design.Height)
	fmt.Fprintf(w, "  Tube Diameter (d):\t%.5f m\n", result.Design.Diameter)
	fmt.Fprintf(w, "  Member Length (L):\t%.5f m\n", result.Quantities.Length)
	fmt.Fprintf(w, "  Tube Area (A):\t%.6g m²\n", result.Quantities.Area)
	w.Flush()
	fmt.Println()

	printResponseTable(result.Quantities, result.Margins, p.TrussConstants())

	fmt.Println("RESULT:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	switch result.Status {
	case solver.Converged:
		fmt.Printf("  ╔═════════════════════════════════════════╗\n")
		fmt.Printf("  ║  MINIMUM COST = %.4f kg              \n", result.Quantities.Cost)
		fmt.Printf("  ╚═════════════════════════════════════════╝\n")
		fmt.Println()
		fmt.Printf("  Status: converged in %d iterations\n", result.Iterations)
	case solver.Infeasible:
		fmt.Println("  ╔═════════════════════════════════════════╗")
		fmt.Println("  ║  NO FEASIBLE DESIGN FOUND               ║")
		fmt.Println("  ╚═════════════════════════════════════════╝")
		fmt.Println()
		fmt.Printf("  Least-violating design shown above (cost %.4f kg).\n", result.Quantities.Cost)
		fmt.Println("  Relax the allowable limits or widen the design bounds.")
	default:
		fmt.Printf("  Status: %s after %d iterations (cost %.4f kg)\n",
			result.Status, result.Iterations, result.Quantities.Cost)
	}
	fmt.Println()
}

// printResponseTable prints the structural responses next to their limits
// with a per-row pass/fail mark.
func printResponseTable(q truss.Quantities, m truss.Margins, c truss.Constants) {
	check := func(g float64) string {
		if g <= truss.FeasTolerance {
			return "✓"
		}
		return "✗"
	}

	fmt.Println("STRUCTURAL RESPONSES:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Axial Stress (σ):\t%.5g Pa\t≤ %.5g Pa\t%s\n", q.Stress, c.StressMax, check(m.Stress))
	fmt.Fprintf(w, "  Buckling Stress (σ_b):\t%.5g Pa\t≥ σ\t%s\n", q.Buckling, check(m.Buckling))
	fmt.Fprintf(w, "  Apex Deflection (δ):\t%.5g m\t≤ %.5g m\t%s\n", q.Deflection, c.DeflectionMax, check(m.Deflection))
	w.Flush()
	fmt.Println()
}

func printHistory(result *solver.Result) {
	if len(result.History) == 0 {
		return
	}

	fmt.Println(diagram.DrawHistory(result.History))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Iter\tCost (kg)\tMax Violation\tStep Norm\n")
	for _, it := range result.History {
		fmt.Fprintf(w, "  %d\t%.6f\t%.3e\t%.3e\n", it.N, it.Cost, it.MaxViolation, it.StepNorm)
	}
	w.Flush()
	fmt.Println()
}

func writeJSON(result *solver.Result, filename string) error {
	data, err := json.MarshalIndent(result.Flat(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0644)
}
