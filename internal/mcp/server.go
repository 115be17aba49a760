// Package mcp provides a Model Context Protocol server for soil
// suitability scoring.
//
// It exposes sample listing, evaluation, extraction import and the mapping
// editor as MCP tools, and the rule targets and store statistics as MCP
// resources. Supports stdio transport and optional HTTP+SSE transport for
// remote access.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/valadhi/blauwe-parser/internal/analysis"
	"github.com/valadhi/blauwe-parser/internal/ingest"
	"github.com/valadhi/blauwe-parser/internal/report"
	"github.com/valadhi/blauwe-parser/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Samples  store.Store
	Service  *analysis.Service
	Importer *ingest.Engine // optional; cbc_import is only registered when set
	// User is the default user id when a call does not name one.
	User    string
	Version string // version string for MCP server info
	Logger  *zap.Logger
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines and
// SQLite supports only one writer at a time, so a mapping update must
// complete before an evaluation reads it.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.User == "" {
		cfg.User = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &handlers{cfg: cfg, logger: cfg.Logger.Named("mcp")}

	s := server.NewMCPServer(
		"CBC",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerSamplesTool(s, h)
	registerEvaluateTool(s, h)
	registerMappingStatusTool(s, h)
	registerSetMappingTool(s, h)
	registerResetMappingTool(s, h)
	if cfg.Importer != nil {
		registerImportTool(s, h)
	}

	registerTargetsResource(s, h)
	registerStatsResource(s, h)

	return s
}

type handlers struct {
	cfg    ServerConfig
	logger *zap.Logger
}

func (h *handlers) user(req mcp.CallToolRequest) string {
	if u := strings.TrimSpace(req.GetString("user", "")); u != "" {
		return u
	}
	return h.cfg.User
}

func jsonResult(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

func userArg() mcp.ToolOption {
	return mcp.WithString("user",
		mcp.Description("User id owning the samples (default: the server's configured user)"),
	)
}

// --- Tools ---

func registerSamplesTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_samples",
		mcp.WithDescription("List imported reports and their samples. Optionally scope to one report."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		userArg(),
		mcp.WithString("report",
			mcp.Description("Report id to list samples for. Empty = all reports."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		user := h.user(req)
		reports, err := h.cfg.Samples.ListReports(ctx, user)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing reports: %v", err)), nil
		}
		samples, err := h.cfg.Samples.ListSamples(ctx, user, req.GetString("report", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing samples: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"user":    user,
			"reports": reports,
			"samples": samples,
		}), nil
	})
}

func registerEvaluateTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_evaluate",
		mcp.WithDescription("Score stored samples against every target in the rules database. Returns per-sample scores, the batch average and optionally pass matrices and rule details."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		userArg(),
		mcp.WithString("report",
			mcp.Description("Report id to evaluate. Empty = every report of the user."),
		),
		mcp.WithString("samples",
			mcp.Description("Comma-separated sample ids within the report. Empty = all samples."),
		),
		mcp.WithNumber("top",
			mcp.Description("Number of best-scoring targets to list per sample (default: 3, 0 disables)"),
		),
		mcp.WithBoolean("matrix",
			mcp.Description("Include the pass/fail matrix of each sample (default: false)"),
		),
		mcp.WithBoolean("details",
			mcp.Description("Include per-rule details of each sample (default: false)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Persist the evaluation as a run (default: false)"),
		),
		mcp.WithString("note",
			mcp.Description("Note stored with a saved run"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		user := h.user(req)
		reportID := strings.TrimSpace(req.GetString("report", ""))
		sampleList := strings.TrimSpace(req.GetString("samples", ""))

		var keys []analysis.SampleKey
		var err error
		if sampleList != "" {
			if reportID == "" {
				return mcp.NewToolResultError("samples requires report"), nil
			}
			for _, id := range strings.Split(sampleList, ",") {
				if id = strings.TrimSpace(id); id != "" {
					keys = append(keys, analysis.SampleKey{ReportID: reportID, SampleID: id})
				}
			}
		} else if reportID != "" {
			keys, err = h.cfg.Service.SampleKeys(ctx, user, reportID)
		} else {
			keys, err = h.cfg.Service.SampleKeys(ctx, user)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("selecting samples: %v", err)), nil
		}

		ev, err := h.cfg.Service.Evaluate(ctx, user, keys)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("evaluation error: %v", err)), nil
		}

		opts := report.Options{
			TopN:    int(req.GetFloat("top", 3)),
			Matrix:  req.GetBool("matrix", false),
			Details: req.GetBool("details", false),
		}
		for _, k := range ev.Skipped {
			opts.Skipped = append(opts.Skipped, k.Label())
		}

		if req.GetBool("save", false) && ev.Batch.Len() > 0 {
			run, err := h.cfg.Service.SaveRun(ctx, user, req.GetString("note", ""), ev)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", err)), nil
			}
			opts.RunID = run.ID
		}
		return jsonResult(report.NewDocument(ev.Batch, opts)), nil
	})
}

func registerMappingStatusTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_mapping_status",
		mcp.WithDescription("Show which extracted parameter feeds each scoring property of a target in one report, with the acceptable range and whether the mapping is manual, global or missing. Also lists unused extracted parameters."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		userArg(),
		mcp.WithString("report", mcp.Required(), mcp.Description("Report id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target (use) name, e.g. 'Akkerbouw'")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		reportID, err := req.RequireString("report")
		if err != nil {
			return mcp.NewToolResultError("report is required"), nil
		}
		target, err := req.RequireString("target")
		if err != nil {
			return mcp.NewToolResultError("target is required"), nil
		}

		st, err := h.cfg.Service.MappingStatus(ctx, h.user(req), reportID, target)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("mapping status: %v", err)), nil
		}

		type propertyView struct {
			analysis.PropertyStatus
			State string `json:"state"`
		}
		props := make([]propertyView, 0, len(st.Properties))
		for _, p := range st.Properties {
			props = append(props, propertyView{PropertyStatus: p, State: p.State()})
		}
		return jsonResult(map[string]any{
			"report_id":  st.ReportID,
			"target":     st.Target,
			"properties": props,
			"available":  st.Available,
			"unused":     st.Unused,
		}), nil
	})
}

func registerSetMappingTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_set_mapping",
		mcp.WithDescription("Map an extracted parameter onto a rule property for one report. The property 'RESET' removes the manual mapping of the parameter."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		userArg(),
		mcp.WithString("report", mcp.Required(), mcp.Description("Report id")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Extracted parameter label, e.g. 'pH (-)'")),
		mcp.WithString("property", mcp.Required(), mcp.Description("Rule property name, e.g. 'pH-waarde'")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		var args [3]string
		for i, name := range []string{"report", "source", "property"} {
			v, err := req.RequireString(name)
			if err != nil || strings.TrimSpace(v) == "" {
				return mcp.NewToolResultError(name + " is required"), nil
			}
			args[i] = v
		}

		if err := h.cfg.Service.SetMapping(ctx, h.user(req), args[0], args[1], args[2]); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("set mapping: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"report_id": args[0],
			"source":    args[1],
			"property":  args[2],
			"status":    "saved",
		}), nil
	})
}

func registerResetMappingTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_reset_mapping",
		mcp.WithDescription("Remove the manual mappings of a rule property in one report so it falls back to the global mappings."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		userArg(),
		mcp.WithString("report", mcp.Required(), mcp.Description("Report id")),
		mcp.WithString("property", mcp.Required(), mcp.Description("Rule property name")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		reportID, err := req.RequireString("report")
		if err != nil {
			return mcp.NewToolResultError("report is required"), nil
		}
		property, err := req.RequireString("property")
		if err != nil {
			return mcp.NewToolResultError("property is required"), nil
		}

		n, err := h.cfg.Service.ResetMapping(ctx, h.user(req), reportID, property)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reset mapping: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"report_id": reportID,
			"property":  property,
			"removed":   n,
		}), nil
	})
}

func registerImportTool(s *server.MCPServer, h *handlers) {
	tool := mcp.NewTool("cbc_import",
		mcp.WithDescription("Import an extraction result file (CSV, TSV, JSON or YAML with sample_id, parameter, unit, value) from the server's filesystem."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		userArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to import")),
		mcp.WithString("report", mcp.Description("Report id (default: the file name without extension)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		path, err := req.RequireString("path")
		if err != nil || strings.TrimSpace(path) == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		res, err := h.cfg.Importer.ImportFile(ctx, path, ingest.ImportOptions{
			UserID:   h.user(req),
			ReportID: req.GetString("report", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("import error: %v", err)), nil
		}
		return jsonResult(res), nil
	})
}
