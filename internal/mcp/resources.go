package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type targetView struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Properties []propertyRule `json:"properties"`
}

type propertyRule struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Range  string  `json:"range"`
}

func registerTargetsResource(s *server.MCPServer, h *handlers) {
	resource := mcp.NewResource(
		"cbc://targets",
		"Rule Targets",
		mcp.WithResourceDescription("Targets (soil uses) in the rules database with the properties they score on and the acceptable ranges."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		rules, err := h.cfg.Service.Rules(ctx)
		if err != nil {
			return nil, err
		}
		targets := make([]targetView, 0, len(rules.Targets))
		for _, t := range rules.Targets {
			v := targetView{ID: t.ID, Name: t.Name, Properties: []propertyRule{}}
			for _, pr := range rules.RequiredRules(t.ID) {
				v.Properties = append(v.Properties, propertyRule{
					Name:   pr.Property.Name,
					Weight: pr.Rule.Weight,
					Range:  pr.Rule.RangeString(),
				})
			}
			targets = append(targets, v)
		}

		data, _ := json.MarshalIndent(map[string]any{
			"targets": targets,
			"count":   len(targets),
		}, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerStatsResource(s *server.MCPServer, h *handlers) {
	resource := mcp.NewResource(
		"cbc://stats",
		"Sample Store Statistics",
		mcp.WithResourceDescription("Counts of reports, samples, extracted rows, mappings and saved runs."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := h.cfg.Samples.Stats(ctx)
		if err != nil {
			return nil, err
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
