// Package analysis runs suitability evaluations over stored samples.
//
// A Service reads a rules snapshot, resolves each report's parameter
// mappings, rebuilds the wide row of every requested sample and scores the
// samples concurrently. Results are aggregated in request order and can be
// persisted as runs. The package also backs the mapping editor: per-target
// mapping status, unused parameters and mapping updates.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/store"
)

// ErrUnknownTarget is returned for a target name absent from the rules.
var ErrUnknownTarget = errors.New("analysis: unknown target")

// ErrUnknownProperty is returned for a property name absent from the rules.
var ErrUnknownProperty = errors.New("analysis: unknown property")

// ErrNoSamples is returned when an evaluation selects nothing to score.
var ErrNoSamples = errors.New("analysis: no samples selected")

// DefaultWorkers bounds concurrent sample evaluation.
const DefaultWorkers = 4

// Options configures a Service.
type Options struct {
	// Required columns are padded into every reconstructed row.
	// Defaults to cbc.RequiredColumns.
	Required []string
	Workers  int
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service evaluates samples held in a sample store against a rules store.
type Service struct {
	samples  store.Store
	rules    store.RulesStore
	required []string
	workers  int
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a Service to its stores.
func NewService(samples store.Store, rules store.RulesStore, opts Options) *Service {
	if opts.Required == nil {
		opts.Required = cbc.RequiredColumns
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		samples:  samples,
		rules:    rules,
		required: opts.Required,
		workers:  opts.Workers,
		logger:   opts.Logger.Named("analysis"),
		now:      opts.Now,
	}
}

// SampleKey identifies one stored sample of the current user.
type SampleKey struct {
	ReportID string `json:"report_id"`
	SampleID string `json:"sample_id"`
}

// Label is the batch label of the sample.
func (k SampleKey) Label() string {
	return cbc.Label(k.ReportID, k.SampleID)
}

// Evaluation is the outcome of scoring a selection of samples.
type Evaluation struct {
	Batch *cbc.Batch
	Rules cbc.RuleSet
	// Resolutions holds the mapping decisions per batch label.
	Resolutions map[string][]cbc.Resolution
	// Skipped lists the samples without stored data.
	Skipped []SampleKey
}

type sampleOutcome struct {
	result      *cbc.Result
	resolutions []cbc.Resolution
}

// Rules returns the current rules snapshot.
func (s *Service) Rules(ctx context.Context) (cbc.RuleSet, error) {
	return s.rules.LoadRuleSet(ctx)
}

// Evaluate scores the given samples of userID. Samples without stored rows
// are skipped with a warning; every other sample appears in the batch in
// request order under its SampleKey label.
func (s *Service) Evaluate(ctx context.Context, userID string, keys []SampleKey) (*Evaluation, error) {
	if len(keys) == 0 {
		return nil, ErrNoSamples
	}
	rules, err := s.rules.LoadRuleSet(ctx)
	if err != nil {
		return nil, err
	}
	global, err := s.samples.GlobalMappings(ctx)
	if err != nil {
		return nil, err
	}
	local := map[string][]cbc.Mapping{}
	for _, k := range keys {
		if _, ok := local[k.ReportID]; ok {
			continue
		}
		lm, err := s.samples.LocalMappings(ctx, userID, k.ReportID)
		if err != nil {
			return nil, err
		}
		local[k.ReportID] = store.Mappings(lm)
	}

	properties := rules.PropertyNames()
	now := s.now()
	outcomes := make([]*sampleOutcome, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, k := range keys {
		g.Go(func() error {
			long, err := s.samples.LoadLongRows(gctx, userID, k.ReportID, k.SampleID)
			if err != nil {
				return err
			}
			row := cbc.Reconstruct(k.SampleID, long, s.required, now)
			if row == nil {
				return nil
			}
			available := make(map[string]bool, len(long))
			for _, r := range long {
				available[cbc.ColumnKey(r.Parameter, r.Unit)] = true
			}
			overrides, resolutions := cbc.ResolveOverrides(properties, local[k.ReportID], global, available)
			res, err := cbc.Evaluate(row, rules, overrides)
			if err != nil {
				return fmt.Errorf("evaluating %s: %w", k.Label(), err)
			}
			outcomes[i] = &sampleOutcome{result: res, resolutions: resolutions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ev := &Evaluation{
		Batch:       cbc.NewBatch(),
		Rules:       rules,
		Resolutions: make(map[string][]cbc.Resolution, len(keys)),
	}
	for i, k := range keys {
		out := outcomes[i]
		if out == nil {
			s.logger.Warn("no data found for sample",
				zap.String("report", k.ReportID), zap.String("sample", k.SampleID))
			ev.Skipped = append(ev.Skipped, k)
			continue
		}
		label := k.Label()
		if err := ev.Batch.Add(label, out.result); err != nil {
			return nil, err
		}
		ev.Resolutions[label] = out.resolutions
	}
	s.logger.Info("evaluated samples",
		zap.String("user", userID),
		zap.Int("requested", len(keys)),
		zap.Int("scored", ev.Batch.Len()),
		zap.Int("skipped", len(ev.Skipped)),
	)
	return ev, nil
}

// EvaluateReports scores every stored sample of the given reports. An
// empty list selects all reports of the user.
func (s *Service) EvaluateReports(ctx context.Context, userID string, reportIDs ...string) (*Evaluation, error) {
	keys, err := s.SampleKeys(ctx, userID, reportIDs...)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, keys)
}

// SampleKeys lists the stored samples of the given reports, or of every
// report when none are given.
func (s *Service) SampleKeys(ctx context.Context, userID string, reportIDs ...string) ([]SampleKey, error) {
	if len(reportIDs) == 0 {
		reportIDs = []string{""}
	}
	var keys []SampleKey
	for _, id := range reportIDs {
		refs, err := s.samples.ListSamples(ctx, userID, strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			keys = append(keys, SampleKey{ReportID: r.ReportID, SampleID: r.SampleID})
		}
	}
	return keys, nil
}

// SaveRun persists an evaluation for userID.
func (s *Service) SaveRun(ctx context.Context, userID, note string, ev *Evaluation) (*store.Run, error) {
	if ev == nil {
		return nil, fmt.Errorf("saving run: %w", cbc.ErrEmptySample)
	}
	run, err := s.samples.SaveRun(ctx, userID, note, ev.Batch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("saved run", zap.String("run", run.ID), zap.Int("samples", run.Samples))
	return run, nil
}
