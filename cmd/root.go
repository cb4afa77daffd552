// Package cmd provides the CLI commands for genfiles.
//
// Commands:
//   - serve: start the document-generation MCP server (also the
//     default when no command is given)
//   - version: show build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "genfiles",
	Short: "genfiles - document generation MCP server",
	Long: `genfiles generates office documents (presentations, HWP, spreadsheets,
Word documents, markdown), uploads them to the connected file-storage
service and indexes them into per-user knowledge collections.

Running genfiles without a command starts the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute is the main entry point for the genfiles CLI.
func Execute() error {
	return rootCmd.Execute()
}
