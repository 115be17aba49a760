package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// DefaultRulesDBPath is the default rules database location.
const DefaultRulesDBPath = "~/.cbc/rules.db"

// RulesStore is the read side of the rules reference data plus the import
// used to seed it.
type RulesStore interface {
	LoadRuleSet(ctx context.Context) (cbc.RuleSet, error)
	ImportRules(ctx context.Context, rs cbc.RuleSet) error
	Close() error
}

// SQLiteRulesStore implements RulesStore on the TARGET, EIGENSCHAP and
// HEEFT tables.
type SQLiteRulesStore struct {
	db     *sql.DB
	dbPath string
}

var rulesDDL = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS TARGET (
		TargetID INTEGER PRIMARY KEY,
		Name     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS EIGENSCHAP (
		EigID INTEGER PRIMARY KEY,
		Name  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS HEEFT (
		TargetID INTEGER NOT NULL,
		EigID    INTEGER NOT NULL,
		Weight   REAL,
		Min      REAL,
		Max      REAL
	)`,
}

// NewRulesStore opens (and creates when needed) a rules database.
// Existing databases with the three reference tables are used as is.
func NewRulesStore(cfg StoreConfig) (RulesStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultRulesDBPath)
	}
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	done, err := isMetaFlagEnabled(db, "schema_bootstrap_complete")
	if err == nil && !done {
		if err = runDDL(db, rulesDDL); err == nil {
			if err = seedMeta(db, "rules"); err == nil {
				err = setMetaFlag(db, "schema_bootstrap_complete")
			}
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("running rules migrations: %w", err)
	}
	return &SQLiteRulesStore{db: db, dbPath: cfg.DBPath}, nil
}

// Close closes the database connection.
func (s *SQLiteRulesStore) Close() error {
	return s.db.Close()
}

// LoadRuleSet reads a snapshot of the reference tables in stored order.
// A NULL weight reads as 0. The snapshot is validated before it is returned.
func (s *SQLiteRulesStore) LoadRuleSet(ctx context.Context) (cbc.RuleSet, error) {
	var rs cbc.RuleSet

	targets, err := s.db.QueryContext(ctx, `SELECT TargetID, Name FROM TARGET ORDER BY rowid`)
	if err != nil {
		return rs, fmt.Errorf("loading targets: %w", err)
	}
	for targets.Next() {
		var t cbc.Target
		if err := targets.Scan(&t.ID, &t.Name); err != nil {
			targets.Close()
			return rs, fmt.Errorf("scanning target: %w", err)
		}
		rs.Targets = append(rs.Targets, t)
	}
	targets.Close()
	if err := targets.Err(); err != nil {
		return rs, fmt.Errorf("loading targets: %w", err)
	}

	props, err := s.db.QueryContext(ctx, `SELECT EigID, Name FROM EIGENSCHAP ORDER BY rowid`)
	if err != nil {
		return rs, fmt.Errorf("loading properties: %w", err)
	}
	for props.Next() {
		var p cbc.Property
		if err := props.Scan(&p.ID, &p.Name); err != nil {
			props.Close()
			return rs, fmt.Errorf("scanning property: %w", err)
		}
		rs.Properties = append(rs.Properties, p)
	}
	props.Close()
	if err := props.Err(); err != nil {
		return rs, fmt.Errorf("loading properties: %w", err)
	}

	rules, err := s.db.QueryContext(ctx, `SELECT TargetID, EigID, Weight, Min, Max FROM HEEFT ORDER BY rowid`)
	if err != nil {
		return rs, fmt.Errorf("loading rules: %w", err)
	}
	defer rules.Close()
	for rules.Next() {
		var r cbc.Rule
		var weight, minV, maxV sql.NullFloat64
		if err := rules.Scan(&r.TargetID, &r.PropertyID, &weight, &minV, &maxV); err != nil {
			return rs, fmt.Errorf("scanning rule: %w", err)
		}
		r.Weight = weight.Float64
		r.Min, r.Max = floatPtr(minV), floatPtr(maxV)
		rs.Rules = append(rs.Rules, r)
	}
	if err := rules.Err(); err != nil {
		return rs, fmt.Errorf("loading rules: %w", err)
	}

	if err := rs.Validate(); err != nil {
		return rs, fmt.Errorf("loading rules: %w", err)
	}
	return rs, nil
}

// ImportRules replaces the reference tables with rs in one transaction.
func (s *SQLiteRulesStore) ImportRules(ctx context.Context, rs cbc.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("importing rules: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"HEEFT", "TARGET", "EIGENSCHAP"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	for _, t := range rs.Targets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO TARGET (TargetID, Name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return fmt.Errorf("inserting target %d: %w", t.ID, err)
		}
	}
	for _, p := range rs.Properties {
		if _, err := tx.ExecContext(ctx, `INSERT INTO EIGENSCHAP (EigID, Name) VALUES (?, ?)`, p.ID, p.Name); err != nil {
			return fmt.Errorf("inserting property %d: %w", p.ID, err)
		}
	}
	for i, r := range rs.Rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO HEEFT (TargetID, EigID, Weight, Min, Max) VALUES (?, ?, ?, ?, ?)`,
			r.TargetID, r.PropertyID, r.Weight, nullFloat(r.Min), nullFloat(r.Max),
		); err != nil {
			return fmt.Errorf("inserting rule %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}

// ParseRuleFile decodes a YAML rule file:
//
//	properties: [{id: 1, name: pH-waarde}]
//	targets:    [{id: 1, name: Akkerbouw}]
//	rules:      [{target: 1, property: 1, weight: 1, min: 5, max: 7}]
func ParseRuleFile(data []byte) (cbc.RuleSet, error) {
	var rs cbc.RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("parsing rule file: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return rs, err
	}
	return rs, nil
}

// LoadRuleFile reads and decodes a YAML rule file from disk.
func LoadRuleFile(path string) (cbc.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cbc.RuleSet{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseRuleFile(data)
}
