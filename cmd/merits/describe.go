package main

import (
	"github.com/aretw0/merits/internal/presentation/describe"
	"github.com/aretw0/merits/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe FAMILY",
		Short: "Describe the segments and CSV tables of a family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.family(args[0])
			if err != nil {
				return err
			}
			md, err := describe.Markdown(f)
			if err != nil {
				return err
			}
			return tui.WriteMarkdown(cmd.OutOrStdout(), md)
		},
	}
}
