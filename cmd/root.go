package cmd

import (
	"fmt"
	"os"

	"github.com/alexiusacademia/gotruss/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gotruss",
	Short: "Two-Bar Truss Sizing Optimizer",
	Long: `gotruss - Go Two-Bar Truss Sizing Optimizer

A CLI tool that sizes a symmetric two-bar truss: it picks the apex
height and the member tube diameter that minimize material cost while
keeping axial stress, Euler buckling, and apex deflection within their
allowable limits.

The tool provides:
  - Constrained cost minimization (SQP or interior-point)
  - Single-point structural analysis of a given design
  - Analytic design sensitivities for every response
  - ASCII and image output of geometry and convergence`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		fmt.Println("  ╔═══════════════════════════════════════════════════════════╗")
		fmt.Println("  ║                                                           ║")
		fmt.Printf("  ║   gotruss v%-47s║\n", version.Version)
		fmt.Println("  ║   Go Two-Bar Truss Sizing Optimizer                       ║")
		fmt.Println("  ║                                                           ║")
		fmt.Println("  ╚═══════════════════════════════════════════════════════════╝")
		fmt.Println()
		fmt.Println("  Sizes a symmetric two-bar truss for minimum material cost")
		fmt.Println("  under stress, buckling, and deflection limits.")
		fmt.Println()
		fmt.Println("  Commands:")
		fmt.Println("    • optimize  - find the least-cost feasible design")
		fmt.Println("    • analyze   - evaluate one design point against the limits")
		fmt.Println()
		fmt.Println("  Use 'gotruss --help' to see available commands.")
		fmt.Println()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
