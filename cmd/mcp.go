package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client query saved reviews, their per-criterion
decisions and analyzer accuracy logs. Configure it with:

  {
    "mcpServers": {
      "admit": { "command": "admit", "args": ["mcp"] }
    }
  }

Available tools: admit_list_reviews, admit_review_records,
admit_feedback_logs, admit_list_criteria`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s, criteria.Default(), buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
