package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"github.com/theapemachine/mcp-wrappers/pkg/miro"
	"github.com/theapemachine/mcp-wrappers/pkg/service"
)

var (
	boardFlag     string
	frameFlag     string
	modeFlag      string
	directionFlag string
	limitFlag     int
	connectorFlag int
	jsonFlag      bool
	outFlag       string

	miroCmd = &cobra.Command{
		Use:   "miro",
		Short: "Work with Miro boards from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	miroDiagramCmd = &cobra.Command{
		Use:   "diagram",
		Short: "Convert a Miro frame into a Mermaid diagram",
		Long:  longMiroDiagram,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := service.LoadConfig(viper.GetViper())

			if err != nil {
				return err
			}

			if cfg.Miro.Token == "" {
				return &errors.MissingCredentialError{Service: "Miro", Keys: []string{"MIRO_TOKEN", "miro.token"}}
			}

			board := boardFlag

			if board == "" {
				board = cfg.Miro.Board
			}

			if board == "" || frameFlag == "" {
				return fmt.Errorf("--board (or MIRO_BOARD_ID) and --frame are required")
			}

			direction, err := diagram.ParseDirection(directionFlag)

			if err != nil {
				return err
			}

			req := miro.FrameRequest{
				BoardID:       board,
				FrameID:       frameFlag,
				LimitPerFrame: limitFlag,
				MaxConnectors: connectorFlag,
				Direction:     direction,
			}

			extractor := miro.NewExtractor(
				miro.NewClient(cfg.Miro.BaseURL, cfg.Miro.Token, miro.WithRateLimit(cfg.Miro.RateLimit)),
				cfg.Heuristics,
			)

			var (
				text    string
				payload any
			)

			switch strings.ToLower(modeFlag) {
			case "flowchart", "mermaid":
				result, err := extractor.Flowchart(cmd.Context(), req)

				if err != nil {
					return err
				}

				text, payload = result.Text, result
			case "erd":
				result, err := extractor.ERD(cmd.Context(), req)

				if err != nil {
					return err
				}

				text, payload = result.Text, result
			default:
				return fmt.Errorf("unknown mode %q (want flowchart or erd)", modeFlag)
			}

			if jsonFlag {
				buf, err := json.MarshalIndent(payload, "", "  ")

				if err != nil {
					return err
				}

				text = string(buf) + "\n"
			}

			if outFlag != "" {
				return os.WriteFile(outFlag, []byte(text), 0o644)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}

	miroBoardsCmd = &cobra.Command{
		Use:   "boards [query]",
		Short: "List the boards the token can access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := service.LoadConfig(viper.GetViper())

			if err != nil {
				return err
			}

			query := ""

			if len(args) == 1 {
				query = args[0]
			}

			boards, err := miro.NewClient(cfg.Miro.BaseURL, cfg.Miro.Token).ListBoards(cmd.Context(), query, miro.MaxPageSize)

			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d board(s)", len(boards))))

			for _, board := range boards {
				marker := ""

				if board.ID == cfg.Miro.Board {
					marker = mutedStyle.Render(" (default)")
				}

				fmt.Fprintln(out, bullet+labelStyle.Render(board.ID+" ")+valueStyle.Render(board.Name)+marker)
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(miroCmd)
	miroCmd.AddCommand(miroDiagramCmd)
	miroCmd.AddCommand(miroBoardsCmd)

	miroDiagramCmd.Flags().StringVarP(&boardFlag, "board", "b", "", "Board id (default from MIRO_BOARD_ID)")
	miroDiagramCmd.Flags().StringVarP(&frameFlag, "frame", "f", "", "Root frame id")
	miroDiagramCmd.Flags().StringVarP(&modeFlag, "mode", "m", "flowchart", "Diagram: flowchart or erd")
	miroDiagramCmd.Flags().StringVarP(&directionFlag, "direction", "d", "LR", "Flowchart direction: LR, TB, BT or RL")
	miroDiagramCmd.Flags().IntVar(&limitFlag, "limit-per-frame", miro.DefaultLimitPerFrame, "Maximum items fetched per frame")
	miroDiagramCmd.Flags().IntVar(&connectorFlag, "max-connectors", miro.DefaultMaxConnectors, "Maximum connectors inspected")
	miroDiagramCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the full result, nodes and edges included")
	miroDiagramCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write to a file instead of stdout")
}

var longMiroDiagram = `
Convert a Miro frame, and the frames nested in it, into Mermaid.

Examples:
  # Flowchart, top to bottom
  mcp-wrappers miro diagram --board uXjVabc= --frame 3458764 --direction TB

  # Entity-relationship diagram into a file
  mcp-wrappers miro diagram -b uXjVabc= -f 3458764 --mode erd -o model.mmd
`
