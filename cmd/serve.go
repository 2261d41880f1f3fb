package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/service"
)

var (
	transportFlag string
	addressFlag   string
	toolsFlag     []string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()

			if cmd.Flags().Changed("transport") {
				v.Set("server.transport", transportFlag)
			}

			if cmd.Flags().Changed("address") {
				v.Set("server.address", addressFlag)
			}

			if cmd.Flags().Changed("tools") {
				v.Set("tools.enabled", toolsFlag)
			}

			cfg, err := service.LoadConfig(v)

			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ts, err := service.NewToolset(ctx, cfg)

			if err != nil {
				return err
			}

			srv, err := service.NewServer(cfg, ts)

			if err != nil {
				return err
			}

			return srv.Serve(ctx)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&transportFlag, "transport", "t", "stdio", "Transport: stdio, sse or http")
	serveCmd.Flags().StringVarP(&addressFlag, "address", "a", ":3210", "Address to listen on for sse and http")
	serveCmd.Flags().StringSliceVar(&toolsFlag, "tools", nil, "Tool groups to enable (default from config)")
}

var longServe = `
Serve the MCP tools over stdio, SSE or streamable HTTP.

Examples:
  # Serve over stdio for a local MCP client
  mcp-wrappers serve

  # Serve over streamable HTTP on port 8080, Miro tools only
  mcp-wrappers serve --transport http --address :8080 --tools miro
`
