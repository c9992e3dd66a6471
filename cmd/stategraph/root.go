package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stategraph",
		Short: "Run graph-based agent workflows",
		Long: `stategraph drives multi-step workflows expressed as graphs of named nodes.
Each node reads the shared record and returns a partial update; edges, routers
and retry policies choose the next node.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml or json)")
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("trace", "", "trace sink: memory, sqlite:<path>, jsonl:<path>, redis:<addr>")

	root.AddCommand(newRunCmd(), newGraphCmd(), newTraceCmd())
	return root
}
