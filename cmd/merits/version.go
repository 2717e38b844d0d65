package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/merits"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of merits",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "merits version %s\n", strings.TrimSpace(merits.Version))
		},
	}
}
