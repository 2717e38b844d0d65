package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/merits/pkg/mapping"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newFamiliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the known message families and their CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, f := range a.families.Families() {
				files := lo.Map(f.Tables, func(t *mapping.Table, _ int) string { return t.File })
				fmt.Fprintf(out, "%-10s %-6s %s\n", f.Name, f.Version, strings.Join(files, " "))
			}
			return nil
		},
	}
}
