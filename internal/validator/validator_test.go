package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/vehicle/pkg/domain"
)

func TestValidate(t *testing.T) {
	// 1. Scenario A: clean pipeline
	clean := []domain.Descriptor{
		{Name: "cam", Outputs: []string{"image"}, Threaded: true},
		{Name: "pilot", Inputs: []string{"image"}, Outputs: []string{"angle"}},
		{Name: "steer", Inputs: []string{"angle"}},
	}
	if got := Validate(clean); len(got) != 0 {
		t.Errorf("Scenario A: expected no findings, got %v", got)
	}

	// 2. Scenario B: problems
	broken := []domain.Descriptor{
		{Name: "mixer", Inputs: []string{"pilot/angle"}, Outputs: []string{"angle"}},
		{Name: "pilot", Inputs: []string{"image"}, Outputs: []string{"pilot/angle"}, Condition: domain.When("run_pilot")},
		{Name: "override", Outputs: []string{"angle"}},
		{Name: "web", Inputs: []string{"angle"}, Threaded: true},
	}
	got := Validate(broken)

	want := map[string]Severity{
		"angle":       SeverityError,   // mixer and override
		"pilot/angle": SeverityWarning, // read before written
		"image":       SeverityWarning, // nobody writes it
		"run_pilot":   SeverityWarning, // condition key nobody writes
	}
	if len(got) != len(want) {
		t.Fatalf("Scenario B: expected %d findings, got %d: %v", len(want), len(got), got)
	}
	for _, f := range got {
		if sev, ok := want[f.Key]; !ok || sev != f.Severity {
			t.Errorf("Scenario B: unexpected finding %s", f)
		}
	}
}

func TestCheck(t *testing.T) {
	descs := []domain.Descriptor{
		{Name: "a", Outputs: []string{"x"}},
		{Name: "b", Outputs: []string{"x"}},
		{Name: "c", Inputs: []string{"y"}},
	}
	err := Check(descs)
	if err == nil {
		t.Fatal("expected an error for duplicate producers")
	}
	if !strings.Contains(err.Error(), "found 1 errors") || !strings.Contains(err.Error(), "a, b") {
		t.Errorf("unexpected error text: %v", err)
	}

	if err := Check(descs[:1]); err != nil {
		t.Errorf("expected warnings only to pass, got %v", err)
	}
}
