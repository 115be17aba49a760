package cbc

import (
	"fmt"
	"sort"
	"strconv"
)

// Status is the outcome of one rule for one sample.
type Status int

const (
	// NotApplicable marks matrix cells no rule produced.
	NotApplicable Status = iota
	// Missing means the sample had no usable value for the property.
	Missing
	// Fail means the value was present but outside the acceptable range.
	Fail
	// Pass means the value was inside the acceptable range.
	Pass
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Missing:
		return "missing"
	default:
		return "n/a"
	}
}

// Code renders the legacy integer encoding used in exported tables:
// 1 pass, 0 fail, -1 missing. Cells without a rule also render as -1.
func (s Status) Code() int {
	switch s {
	case Pass:
		return 1
	case Fail:
		return 0
	default:
		return -1
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStatus parses the String form of a Status.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "pass":
		return Pass, nil
	case "fail":
		return Fail, nil
	case "missing":
		return Missing, nil
	case "n/a", "":
		return NotApplicable, nil
	default:
		return NotApplicable, fmt.Errorf("unknown rule status %q", v)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortPropertyRules(rules []PropertyRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Property.Name < rules[j].Property.Name
	})
}
