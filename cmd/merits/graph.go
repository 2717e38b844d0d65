package main

import (
	"fmt"

	"github.com/aretw0/merits/internal/presentation/graph"
	"github.com/aretw0/merits/pkg/events"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newGraphCmd(a *app) *cobra.Command {
	var trace string
	cmd := &cobra.Command{
		Use:   "graph FAMILY",
		Short: "Export the automaton of a family as a Mermaid graph",
		Long: `Outputs a Mermaid diagram (graph TD) of the automaton: one node per state and one
edge per transition. With --trace the states a message goes through are
highlighted; a message that fails is highlighted up to the failing segment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.converter(args[0])
			if err != nil {
				return err
			}

			var overlay *graph.GraphOverlay
			var parseErr error
			if trace != "" {
				text, err := readInput(cmd, trace)
				if err != nil {
					return err
				}
				rec := events.NewRecorder()
				parseErr = conv.Parse(cmd.Context(), text, rec)
				evs := rec.Events()
				overlay = &graph.GraphOverlay{
					VisitedPaths: lo.Uniq(lo.Map(evs, func(e events.Event, _ int) string { return e.Path })),
				}
				if len(evs) > 0 {
					overlay.CurrentPath = evs[len(evs)-1].Path
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(conv.Automaton(), overlay))
			if parseErr != nil {
				return fmt.Errorf("trace stopped: %w", parseErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&trace, "trace", "", "Highlight the path of this message")
	return cmd
}
