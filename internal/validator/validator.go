package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Severity ranks a finding.
type Severity string

const (
	// SeverityError marks pipelines that silently misbehave.
	SeverityError Severity = "error"
	// SeverityWarning marks pipelines that work but probably not as intended.
	SeverityWarning Severity = "warning"
)

// Finding is one problem in a unit pipeline.
type Finding struct {
	Severity Severity
	Unit     string
	Key      string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: unit %q, key %q: %s", f.Severity, f.Unit, f.Key, f.Message)
}

// Validate inspects descriptors in registration order:
//
//   - a key written by more than one unit (last writer wins each tick)
//   - an input or condition key nobody writes (always the bus default)
//   - an input written only by later units (sees the previous tick's value)
//
// Threaded inputs are exempt from the last check since a background loop
// lags by design.
func Validate(descs []domain.Descriptor) []Finding {
	var findings []Finding

	producers := make(map[string][]int)
	for i, d := range descs {
		for _, k := range d.Outputs {
			producers[k] = append(producers[k], i)
		}
	}

	// 1. Multiple producers
	reported := make(map[string]bool)
	for _, d := range descs {
		for _, k := range d.Outputs {
			if len(producers[k]) > 1 && !reported[k] {
				reported[k] = true
				names := make([]string, 0, len(producers[k]))
				for _, i := range producers[k] {
					names = append(names, descs[i].Name)
				}
				findings = append(findings, Finding{
					Severity: SeverityError,
					Unit:     d.Name,
					Key:      k,
					Message:  fmt.Sprintf("written by %d units (%s)", len(names), strings.Join(names, ", ")),
				})
			}
		}
	}

	// 2. Reads
	for i, d := range descs {
		reads := d.Inputs
		if d.Condition != nil {
			reads = append(append([]string(nil), reads...), d.Condition.Key)
		}
		for _, k := range reads {
			p := producers[k]
			switch {
			case len(p) == 0:
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Unit:     d.Name,
					Key:      k,
					Message:  "no unit writes this key",
				})
			case p[0] >= i && !d.Threaded:
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Unit:     d.Name,
					Key:      k,
					Message:  fmt.Sprintf("written by later unit %q, value lags one tick", descs[p[0]].Name),
				})
			}
		}
	}
	return findings
}

// Check returns an error listing the error-severity findings, if any.
func Check(descs []domain.Descriptor) error {
	var errors []string
	for _, f := range Validate(descs) {
		if f.Severity == SeverityError {
			errors = append(errors, f.String())
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
