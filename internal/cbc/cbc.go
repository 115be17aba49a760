// Package cbc implements the suitability scoring engine for soil and sediment
// samples.
//
// A RuleSet describes which measured properties matter for which end-use
// targets and within which range a value is acceptable. Evaluate scores one
// wide sample row against every target in the set and returns the score row,
// a property x target pass matrix and a per-rule audit trail.
//
// Everything in this package is a pure function of its inputs. Stores, files
// and mapping persistence live elsewhere and hand snapshots in.
package cbc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySample is returned when there is no sample row to evaluate.
	ErrEmptySample = errors.New("cbc: empty sample")
	// ErrNoRules is returned when a rule set has no targets or no rules.
	ErrNoRules = errors.New("cbc: no rules loaded")
	// ErrInvalidRules is returned for structurally broken reference tables.
	ErrInvalidRules = errors.New("cbc: invalid rule set")
	// ErrDuplicateLabel is returned when a batch already holds a sample label.
	ErrDuplicateLabel = errors.New("cbc: duplicate sample label")
)

// Property is a canonical measurable soil attribute (EIGENSCHAP).
type Property struct {
	ID   int64  `json:"eig_id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Target is an end-use scenario that samples are scored against.
type Target struct {
	ID   int64  `json:"target_id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Rule ties one target to one property (HEEFT). A nil bound is undefined.
type Rule struct {
	TargetID   int64    `json:"target_id" yaml:"target"`
	PropertyID int64    `json:"eig_id" yaml:"property"`
	Weight     float64  `json:"weight" yaml:"weight"`
	Min        *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Accepts reports whether v lies inside the closed range [Min, Max].
// Rules with an undefined bound never accept.
func (r Rule) Accepts(v float64) bool {
	if r.Min == nil || r.Max == nil {
		return false
	}
	return *r.Min <= v && v <= *r.Max
}

// RangeString renders the acceptable range the way the mapping editor shows it.
func (r Rule) RangeString() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%s - %s", formatFloat(*r.Min), formatFloat(*r.Max))
	case r.Min != nil:
		return "> " + formatFloat(*r.Min)
	case r.Max != nil:
		return "< " + formatFloat(*r.Max)
	default:
		return "-"
	}
}

// RuleSet is a read-only snapshot of the rules reference data.
type RuleSet struct {
	Properties []Property `json:"properties" yaml:"properties"`
	Targets    []Target   `json:"targets" yaml:"targets"`
	Rules      []Rule     `json:"rules" yaml:"rules"`
}

// Validate checks the structural contract the engine relies on.
func (rs RuleSet) Validate() error {
	if len(rs.Targets) == 0 || len(rs.Rules) == 0 {
		return ErrNoRules
	}

	props := make(map[int64]struct{}, len(rs.Properties))
	for _, p := range rs.Properties {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: property %d has no name", ErrInvalidRules, p.ID)
		}
		if _, dup := props[p.ID]; dup {
			return fmt.Errorf("%w: duplicate property id %d", ErrInvalidRules, p.ID)
		}
		props[p.ID] = struct{}{}
	}

	targets := make(map[int64]struct{}, len(rs.Targets))
	names := make(map[string]struct{}, len(rs.Targets))
	for _, t := range rs.Targets {
		if _, dup := targets[t.ID]; dup {
			return fmt.Errorf("%w: duplicate target id %d", ErrInvalidRules, t.ID)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidRules, t.Name)
		}
		targets[t.ID] = struct{}{}
		names[t.Name] = struct{}{}
	}

	for i, r := range rs.Rules {
		if _, ok := targets[r.TargetID]; !ok {
			return fmt.Errorf("%w: rule %d references unknown target %d", ErrInvalidRules, i, r.TargetID)
		}
		if _, ok := props[r.PropertyID]; !ok {
			return fmt.Errorf("%w: rule %d references unknown property %d", ErrInvalidRules, i, r.PropertyID)
		}
		if r.Weight < 0 {
			return fmt.Errorf("%w: rule %d has negative weight %v", ErrInvalidRules, i, r.Weight)
		}
	}
	return nil
}

// PropertyNames lists property names in reference order.
func (rs RuleSet) PropertyNames() []string {
	names := make([]string, 0, len(rs.Properties))
	for _, p := range rs.Properties {
		names = append(names, p.Name)
	}
	return names
}

// TargetByName looks a target up by its name.
func (rs RuleSet) TargetByName(name string) (Target, bool) {
	for _, t := range rs.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// RequiredRules returns the scoring rules (weight > 0) of one target together
// with their property, ordered by property name.
func (rs RuleSet) RequiredRules(targetID int64) []PropertyRule {
	byID := make(map[int64]Property, len(rs.Properties))
	for _, p := range rs.Properties {
		byID[p.ID] = p
	}
	var out []PropertyRule
	for _, r := range rs.Rules {
		if r.TargetID != targetID || r.Weight <= 0 {
			continue
		}
		p, ok := byID[r.PropertyID]
		if !ok {
			continue
		}
		out = append(out, PropertyRule{Property: p, Rule: r})
	}
	sortPropertyRules(out)
	return out
}

// PropertyRule pairs a rule with the property it constrains.
type PropertyRule struct {
	Property Property
	Rule     Rule
}

// Float returns a pointer to v, for building rule bounds.
func Float(v float64) *float64 {
	return &v
}
