package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/internal/workflows"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "graph <workflow>",
		Short:     "Print a workflow as a Mermaid flowchart",
		Args:      cobra.ExactArgs(1),
		ValidArgs: workflows.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := workflows.Lookup(args[0])
			if err != nil {
				return err
			}
			compiled, err := w.Build(workflows.Deps{LLM: workflows.NewCannedLLM()})
			if err != nil {
				return fmt.Errorf("build %s: %w", w.Name, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), compiled.Mermaid())
			return err
		},
	}
}
