package main

import (
	"fmt"
	"io"

	"github.com/aretw0/merits/pkg/events"
	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	var familyName, format string
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Print the structural events of a message",
		Long: `Parses a message (stdin when no file is given) and prints every entered group,
segment and exited group. Formats: text (indented), ndjson and cbor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			conv, err := a.converter(familyName)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			rec := events.NewRecorder()
			if err := conv.Parse(cmd.Context(), text, rec); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				_, err = io.WriteString(out, events.Text(rec.Events()))
			case "ndjson":
				err = events.WriteNDJSON(out, rec.Events())
			case "cbor":
				err = events.NewEncoder(out).Encode(rec.Events())
			default:
				err = fmt.Errorf("unknown format %q, expected text, ndjson or cbor", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&familyName, "family", "f", "", "Message family")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, ndjson or cbor")
	return cmd
}
