package cmd

import (
	"github.com/huangsam/coverbouncer/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the CoverBouncer MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents verify coverage, resolve file profiles and list the policy via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, so setup must stay quiet
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
