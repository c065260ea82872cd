package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/aiconn/aiconn/llm"
	"github.com/aiconn/aiconn/version"
)

func newToolsCmd() *cobra.Command {
	var (
		toolsFile   string
		resultsFile string
		toolChoice  string
	)

	cmd := &cobra.Command{
		Use:   "tools <message>",
		Short: "Run a tool-enabled chat and print the requested calls",
		Long: `Sends a message with the tool definitions from --tools (a JSON array
of definitions). When the model requests tool calls they are printed as
JSON; with --results pointing at a tool-result array the follow-up
round trip runs too and the final answer is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			defs, err := readToolDefinitions(toolsFile)
			if err != nil {
				return err
			}
			if err := client.SetTools(defs); err != nil {
				return err
			}
			if toolChoice != "" {
				client.SetToolChoice(toolChoice)
			}

			res, err := client.ToolChat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if len(res.ToolCalls) == 0 {
				fmt.Println(res.Content)
				return nil
			}

			out, err := json.MarshalIndent(res.ToolCalls, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if resultsFile == "" {
				return nil
			}
			raw, err := os.ReadFile(resultsFile)
			if err != nil {
				return err
			}
			final, err := client.ReplyToToolsJSON(cmd.Context(), string(raw))
			if err != nil {
				return err
			}
			fmt.Println(final.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&toolsFile, "tools", "", "path to a JSON array of tool definitions (required)")
	cmd.Flags().StringVar(&resultsFile, "results", "", "path to a JSON array of tool results")
	cmd.Flags().StringVar(&toolChoice, "tool-choice", "", "tool choice (auto, none, required, or a vendor JSON object)")
	_ = cmd.MarkFlagRequired("tools")
	return cmd
}

// readToolDefinitions splits a JSON array file into the per-tool
// definition strings the client registers.
func readToolDefinitions(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("tools file must be a JSON array: %w", err)
	}
	defs := make([]string, 0, len(items))
	for _, it := range items {
		defs = append(defs, string(it))
	}
	return defs, nil
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the supported platforms",
		Run: func(cmd *cobra.Command, args []string) {
			table := uitable.New()
			table.AddRow("PLATFORM", "ADAPTER")
			for _, name := range llm.Platforms() {
				adapter, err := llm.NewAdapter(name)
				if err != nil {
					continue
				}
				table.AddRow(name, adapter.Platform())
			}
			fmt.Println(table.String())
		},
	}
}

func newVersionCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			switch outputFormat {
			case "json":
				jsonStr, err := info.ToJSON()
				if err != nil {
					return err
				}
				fmt.Println(jsonStr)
			case "short":
				fmt.Println(info.String())
			default:
				fmt.Println(info.Text())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, short)")
	return cmd
}
