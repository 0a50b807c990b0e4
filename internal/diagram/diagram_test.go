package diagram

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexiusacademia/gotruss/internal/solver"
	"github.com/alexiusacademia/gotruss/internal/truss"
)

var testConstants = truss.Constants{
	BaseWidth: 1.0, Thickness: 0.01, Elasticity: 2.0e11, Load: 1.0e5,
	Density: 7850, StressMax: 2.0e8, DeflectionMax: 0.01,
}

func TestDrawTruss(t *testing.T) {
	out := DrawTruss(truss.Design{Height: 1.0, Diameter: 0.1}, testConstants)
	for _, want := range []string{"TRUSS GEOMETRY", "o", "^", "H = 1.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("DrawTruss() output missing %q", want)
		}
	}
}

func TestDrawHistory(t *testing.T) {
	history := []solver.Iteration{
		{N: 1, Cost: 55.1}, {N: 2, Cost: 20.4}, {N: 3, Cost: 6.8}, {N: 4, Cost: 4.2},
	}
	out := DrawHistory(history)
	if !strings.Contains(out, "CONVERGENCE") || !strings.Contains(out, "cost (kg) per iteration") {
		t.Errorf("DrawHistory() output missing chart sections:\n%s", out)
	}
	if DrawHistory(nil) != "" {
		t.Error("DrawHistory(nil) should be empty")
	}
}

func TestExportGeometry(t *testing.T) {
	for _, ext := range []string{"png", "svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "truss."+ext)
			if err := ExportGeometry(truss.Design{Height: 1.0, Diameter: 0.1}, testConstants, path); err != nil {
				t.Fatalf("ExportGeometry() error: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat exported file: %v", err)
			}
			if info.Size() == 0 {
				t.Error("exported file is empty")
			}
		})
	}
}

func TestExportHistoryRejectsBadInput(t *testing.T) {
	history := []solver.Iteration{{N: 1, Cost: 55.1}}
	if err := ExportHistory(history, "out.bmp"); err == nil {
		t.Error("ExportHistory() with bmp extension: want error")
	}
	if err := ExportHistory(nil, "out.png"); err == nil {
		t.Error("ExportHistory() with empty history: want error")
	}
}
