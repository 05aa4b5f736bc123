package domain

import "slices"

// Descriptor declares how a unit is wired into the loop.
// Inputs and Outputs are positional: the i-th input is the i-th argument and
// the i-th result is written to the i-th output key.
type Descriptor struct {
	Name      string
	Inputs    []string
	Outputs   []string
	Threaded  bool
	Condition *Condition
}

// Clone returns a deep copy so that the registered descriptor cannot be
// mutated by the caller after registration.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Inputs = slices.Clone(d.Inputs)
	out.Outputs = slices.Clone(d.Outputs)
	if d.Condition != nil {
		c := *d.Condition
		out.Condition = &c
	}
	return out
}

// Validate checks the structural rules of a descriptor.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return &RegistrationError{Reason: "unit name is empty"}
	}
	for _, k := range d.Inputs {
		if k == "" {
			return &RegistrationError{Unit: d.Name, Reason: "empty input key"}
		}
	}
	seen := make(map[string]bool, len(d.Outputs))
	for _, k := range d.Outputs {
		if k == "" {
			return &RegistrationError{Unit: d.Name, Reason: "empty output key"}
		}
		if seen[k] {
			return &RegistrationError{Unit: d.Name, Reason: "duplicate output key " + k}
		}
		seen[k] = true
	}
	if d.Condition != nil {
		if d.Condition.Key == "" {
			return &RegistrationError{Unit: d.Name, Reason: "run condition has no key"}
		}
		if d.Condition.Op == CondFunc && d.Condition.Fn == nil {
			return &RegistrationError{Unit: d.Name, Reason: "run condition has no predicate"}
		}
	}
	return nil
}
