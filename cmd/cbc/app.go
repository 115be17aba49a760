package main

import (
	"go.uber.org/zap"

	"github.com/valadhi/blauwe-parser/internal/analysis"
	"github.com/valadhi/blauwe-parser/internal/config"
	"github.com/valadhi/blauwe-parser/internal/logging"
	"github.com/valadhi/blauwe-parser/internal/store"
)

// app holds the resolved configuration and lazily opened stores shared by
// every subcommand.
type app struct {
	opts    config.ResolveOptions
	cfg     config.ResolvedConfig
	logger  *zap.Logger
	samples store.Store
	rules   store.RulesStore
}

func (a *app) init() error {
	cfg, err := config.ResolveConfig(a.opts)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel.Value, cfg.LogFormat.Value)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) close() error {
	if a.samples != nil {
		a.samples.Close()
		a.samples = nil
	}
	if a.rules != nil {
		a.rules.Close()
		a.rules = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

func (a *app) user() string {
	return a.cfg.User.Value
}

func (a *app) sampleStore() (store.Store, error) {
	if a.samples == nil {
		s, err := store.NewStore(store.StoreConfig{DBPath: a.cfg.SamplesDB.Value})
		if err != nil {
			return nil, err
		}
		a.logger.Debug("opened samples database", zap.String("path", a.cfg.SamplesDB.Value))
		a.samples = s
	}
	return a.samples, nil
}

func (a *app) rulesStore() (store.RulesStore, error) {
	if a.rules == nil {
		r, err := store.NewRulesStore(store.StoreConfig{DBPath: a.cfg.RulesDB.Value})
		if err != nil {
			return nil, err
		}
		a.logger.Debug("opened rules database", zap.String("path", a.cfg.RulesDB.Value))
		a.rules = r
	}
	return a.rules, nil
}

func (a *app) service() (*analysis.Service, error) {
	samples, err := a.sampleStore()
	if err != nil {
		return nil, err
	}
	rules, err := a.rulesStore()
	if err != nil {
		return nil, err
	}
	workers, err := a.cfg.WorkerCount()
	if err != nil {
		return nil, err
	}
	return analysis.NewService(samples, rules, analysis.Options{
		Required: a.cfg.RequiredColumns,
		Workers:  workers,
		Logger:   a.logger,
	}), nil
}
