package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/store"
)

// Mapping states shown by the mapping editor.
const (
	StateManual  = "Mapped (Manual)"
	StateGlobal  = "Mapped (Global)"
	StateAbsent  = "Mapped (Not in report)"
	StateMissing = "Missing"
)

// PropertyStatus is one row of the mapping editor: a property the target
// scores on and the extracted parameter currently feeding it.
type PropertyStatus struct {
	Property string     `json:"property"`
	Weight   float64    `json:"weight"`
	Range    string     `json:"range"`
	Source   string     `json:"source,omitempty"`
	Origin   cbc.Origin `json:"origin"`
	Present  bool       `json:"present"`
}

// State renders the status badge of the row.
func (p PropertyStatus) State() string {
	switch {
	case p.Origin == cbc.OriginNone:
		return StateMissing
	case !p.Present:
		return StateAbsent
	case p.Origin == cbc.OriginLocal:
		return StateManual
	default:
		return StateGlobal
	}
}

// MappingStatus describes how one report's parameters feed one target.
type MappingStatus struct {
	ReportID   string           `json:"report_id"`
	Target     cbc.Target       `json:"target"`
	Properties []PropertyStatus `json:"properties"`
	// Available lists the extracted parameter labels of the report.
	Available []string `json:"available"`
	// Unused lists available labels no mapping reads from.
	Unused []string `json:"unused"`
}

// MappingStatus reports, for every scoring property of target, the range it
// is judged on and the extracted parameter that supplies it in the report.
func (s *Service) MappingStatus(ctx context.Context, userID, reportID, target string) (*MappingStatus, error) {
	rules, err := s.rules.LoadRuleSet(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := rules.TargetByName(target)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, target)
	}

	params, err := s.samples.AvailableParameters(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	available := make([]string, 0, len(params))
	for _, p := range params {
		available = append(available, p.Label())
	}
	availableSet := cbc.AvailableSet(available)

	global, err := s.samples.GlobalMappings(ctx)
	if err != nil {
		return nil, err
	}
	lm, err := s.samples.LocalMappings(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	local := store.Mappings(lm)

	status := &MappingStatus{ReportID: reportID, Target: t, Available: available}
	for _, pr := range rules.RequiredRules(t.ID) {
		res := cbc.Resolve(pr.Property.Name, local, global, availableSet)
		status.Properties = append(status.Properties, PropertyStatus{
			Property: pr.Property.Name,
			Weight:   pr.Rule.Weight,
			Range:    pr.Rule.RangeString(),
			Source:   res.Source,
			Origin:   res.Origin,
			Present:  res.Present,
		})
	}
	status.Unused = unusedParameters(available, local, global, rules.PropertyNames())
	return status, nil
}

// unusedParameters keeps the labels that are neither the source of a local
// or global mapping nor a property name themselves.
func unusedParameters(available []string, local, global []cbc.Mapping, properties []string) []string {
	used := map[string]bool{}
	for _, m := range local {
		used[m.Source] = true
	}
	for _, m := range global {
		used[m.Source] = true
	}
	for _, p := range properties {
		used[p] = true
	}
	var out []string
	for _, a := range available {
		if !used[a] {
			out = append(out, a)
		}
	}
	return out
}

// SetMapping stores a manual mapping of source onto property for one
// report. The property must exist in the rules.
func (s *Service) SetMapping(ctx context.Context, userID, reportID, source, property string) error {
	if err := s.checkProperty(ctx, property); err != nil {
		return err
	}
	if err := s.samples.UpdateLocalMapping(ctx, userID, reportID, source, property); err != nil {
		return err
	}
	s.logger.Info("mapping saved",
		zap.String("report", reportID), zap.String("source", source), zap.String("property", property))
	return nil
}

// ResetMapping drops the manual mappings of property so it falls back to
// the global mappings. It returns how many mappings were removed.
func (s *Service) ResetMapping(ctx context.Context, userID, reportID, property string) (int64, error) {
	n, err := s.samples.ResetLocalMapping(ctx, userID, reportID, property)
	if err != nil {
		return 0, err
	}
	s.logger.Info("mapping reset",
		zap.String("report", reportID), zap.String("property", property), zap.Int64("removed", n))
	return n, nil
}

func (s *Service) checkProperty(ctx context.Context, property string) error {
	if strings.TrimSpace(property) == store.ResetTarget {
		return nil
	}
	rules, err := s.rules.LoadRuleSet(ctx)
	if err != nil {
		return err
	}
	for _, name := range rules.PropertyNames() {
		if name == strings.TrimSpace(property) {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownProperty, property)
}
