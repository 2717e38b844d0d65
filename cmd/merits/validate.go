package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/family"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var familyName string
	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check family definitions or messages",
		Long: `Without --family the files are family definitions (YAML); every problem
found is reported. With no files at all every loaded family is built.

With --family the files are messages, each checked against the family.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if familyName != "" {
				return a.validateMessages(cmd, familyName, args)
			}
			if len(args) == 0 {
				for _, f := range a.families.Families() {
					if _, err := f.Automaton(); err != nil {
						return fmt.Errorf("%s: %w", f.Name, err)
					}
					fmt.Fprintf(out, "%s: ok\n", f.Name)
				}
				return nil
			}
			for _, path := range args {
				f, err := family.Load(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: family %s is valid\n", path, f.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&familyName, "family", "f", "", "Validate messages of this family")
	return cmd
}

func (a *app) validateMessages(cmd *cobra.Command, name string, paths []string) error {
	conv, err := a.converter(name)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	for _, path := range paths {
		text, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		if err := conv.Parse(cmd.Context(), text, edifact.NopHandler{}); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s message\n", path, conv.Family().Name)
	}
	return nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
