package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valadhi/blauwe-parser/internal/ingest"
	cbcmcp "github.com/valadhi/blauwe-parser/internal/mcp"
)

func mcpCmd(a *app) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol over stdio (or HTTP+SSE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			srv := cbcmcp.NewServer(cbcmcp.ServerConfig{
				Samples:  samples,
				Service:  svc,
				Importer: ingest.NewEngine(samples, a.logger),
				User:     a.user(),
				Version:  version,
				Logger:   a.logger,
			})

			if httpAddr != "" {
				a.logger.Info("serving MCP over HTTP+SSE", zap.String("addr", httpAddr))
				return server.NewSSEServer(srv).Start(httpAddr)
			}
			a.logger.Debug("serving MCP over stdio")
			return server.ServeStdio(srv)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "listen address for HTTP+SSE transport (e.g. :8080)")
	return cmd
}
