package main

import (
	"github.com/spf13/cobra"
)

const (
	defaultRuleFile    = "app.txt"
	defaultListenAddr  = "127.0.0.1:8765"
	defaultMetricsAddr = "127.0.0.1:8766"
	defaultLogFormat   = "json"
	defaultSoftCap     = 10000
)

// NewRootCmd creates the root command for the tinytalk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tinytalk",
		Short: "tinytalk - a reactive rule engine for tinyland scenes",
		Long: `tinytalk loads a rule file written in the TinyTalk DSL and drains
a scene of matching objects against it, either once from a REPL or
continuously behind an HTTP endpoint.`,
	}

	cmd.AddCommand(newReplCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
