package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the scrum-mcp application
var rootCmd = &cobra.Command{
	Use:   "scrum-mcp",
	Short: "MCP server exposing Jira scrum workflows to AI assistants",
	Long: `scrum-mcp is a Model Context Protocol (MCP) server that exposes scrum
workflows on a Jira instance: sprint planning, issue tracking, backlog
grooming, and sprint reporting.

It connects to Jira with credentials from the environment (JIRA_URL,
JIRA_USERNAME, JIRA_API_TOKEN) and serves tools over stdio or
streamable HTTP.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "scrum-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
