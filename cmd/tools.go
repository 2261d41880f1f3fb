package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/registry"
	"github.com/theapemachine/mcp-wrappers/pkg/service"
	"github.com/theapemachine/mcp-wrappers/pkg/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools and whether they are enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := service.LoadConfig(viper.GetViper())

		if err != nil {
			return err
		}

		reg := registry.New()

		if err := (&tools.Toolset{}).Register(reg); err != nil {
			return err
		}

		enabled := map[string]bool{}

		for _, def := range reg.Enabled(cfg.Tools) {
			enabled[def.Name()] = true
		}

		var sb strings.Builder

		for _, group := range reg.Groups() {
			sb.WriteString("\n" + sectionStyle.Render(group) + "\n")

			for _, def := range reg.List() {
				if def.Group != group {
					continue
				}

				name := labelStyle.Render(def.Name())

				if !enabled[def.Name()] {
					name = mutedStyle.Render(def.Name() + " (disabled)")
				}

				sb.WriteString(bullet + name + "\n")
				sb.WriteString(bullet + "  " + valueStyle.Render(def.Tool.Description) + "\n")
			}
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), headerStyle.Render("Tools")+"\n"+sb.String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
