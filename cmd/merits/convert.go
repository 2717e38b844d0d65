package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/internal/config"
	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert messages to CSV tables and back",
	}
	cmd.AddCommand(newToCSVCmd(a), newToEdifactCmd(a))
	return cmd
}

type toCSVOptions struct {
	family   string
	inputs   []string
	output   string
	zip      string
	startIDs map[string]int
	key      string
	store    string
	storeDir string
	redis    string
}

func newToCSVCmd(a *app) *cobra.Command {
	o := &toCSVOptions{}
	cmd := &cobra.Command{
		Use:   "edifact-csv",
		Short: "Convert messages to one CSV file per table",
		Long: `Converts one or more messages (--input, repeatable; stdin when omitted) into
one set of CSV files. Row IDs continue from one message to the next.

With --key the row IDs continue from the sequences saved under that key in
the store, and the sequences where the run ended are saved back.`,
		Example: `  merits convert edifact-csv -f TSDUPD -i stops.edi -o out/
  merits convert edifact-csv -f SKDUPD -i a.edi -i b.edi -z timetable.zip --csv-id SKDUPD_TRAIN.csv=1000
  merits convert edifact-csv -f SKDUPD -i day.edi -o out/ --key daily --redis 127.0.0.1:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runToCSV(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.family, "family", "f", "", "Message family")
	f.StringArrayVarP(&o.inputs, "input", "i", nil, "Message file, - for stdin (repeatable)")
	f.StringVarP(&o.output, "output", "o", "", "Directory to write the CSV files to")
	f.StringVarP(&o.zip, "zip", "z", "", "Archive to write the CSV files to")
	f.StringToIntVar(&o.startIDs, "csv-id", nil, "First row ID of a table, as FILE=ID (repeatable)")
	f.StringVar(&o.key, "key", "", "Sequence key to continue row IDs from")
	f.StringVar(&o.store, "store", "", "Sequence store: memory, file or redis (default from config)")
	f.StringVar(&o.storeDir, "store-dir", "", "Directory of the file store")
	f.StringVar(&o.redis, "redis", "", "Address of the redis store; implies --store redis")
	cmd.MarkFlagRequired("family")
	cmd.MarkFlagsOneRequired("output", "zip")
	return cmd
}

func (a *app) runToCSV(cmd *cobra.Command, o *toCSVOptions) error {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	opts := []merits.Option{merits.WithLogger(logger), merits.WithStartIDs(o.startIDs)}
	if o.key != "" {
		seq, err := openStore(o.storeConfig(a.cfg.Store))
		if err != nil {
			return err
		}
		defer seq.close()
		opts = append(opts, merits.WithSequenceStore(seq.store), merits.WithLocker(seq.locker))
	}
	conv, err := a.converter(o.family, opts...)
	if err != nil {
		return err
	}

	plan, err := conv.Plan()
	if err != nil {
		return err
	}
	if unknown := lo.Without(lo.Keys(o.startIDs), plan.Files()...); len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("--csv-id names unknown files %v, expected one of %s", unknown, strings.Join(plan.Files(), ", "))
	}

	inputs := o.inputs
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	texts := make([]string, 0, len(inputs))
	for _, path := range inputs {
		text, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		texts = append(texts, text)
	}

	res, err := conv.EdifactToCSVMulti(cmd.Context(), o.key, texts)
	if err != nil {
		return err
	}

	if o.output != "" {
		if err := os.MkdirAll(o.output, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", o.output, err)
		}
		for _, name := range res.Order {
			if err := os.WriteFile(filepath.Join(o.output, name), []byte(res.Files[name]), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
	}
	if o.zip != "" {
		data, err := res.Zip()
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.zip, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.zip, err)
		}
	}

	out := cmd.OutOrStdout()
	for _, name := range res.Order {
		fmt.Fprintf(out, "%-28s %6d rows\n", name, res.RowCounts[name])
	}
	return nil
}

func (o *toCSVOptions) storeConfig(base config.StoreConfig) config.StoreConfig {
	cfg := base
	if o.redis != "" {
		cfg.Kind = config.StoreRedis
		cfg.Redis.Addr = o.redis
	}
	if o.store != "" {
		cfg.Kind = o.store
	}
	if o.storeDir != "" {
		cfg.Dir = o.storeDir
	}
	return cfg
}

func newToEdifactCmd(a *app) *cobra.Command {
	var familyName, output string
	var inputs []string
	cmd := &cobra.Command{
		Use:   "csv-edifact",
		Short: "Convert a set of CSV files back to a message",
		Long: `Reads the CSV files of one message, given as a directory, a zip archive or the
files themselves (--input, repeatable), and writes the message to --output or
stdout.`,
		Example: `  merits convert csv-edifact -f TSDUPD -i out/ -o stops.edi
  merits convert csv-edifact -f SKDUPD -i timetable.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.converter(familyName)
			if err != nil {
				return err
			}
			plan, err := conv.Plan()
			if err != nil {
				return err
			}
			files, err := openCSV(inputs, plan.Files())
			if err != nil {
				return err
			}
			text, err := conv.CSVToEdifact(cmd.Context(), files)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&familyName, "family", "f", "", "Message family")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Directory, zip archive or CSV file (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write the message to (default stdout)")
	cmd.MarkFlagRequired("family")
	cmd.MarkFlagRequired("input")
	return cmd
}

// openCSV opens a single directory or zip archive, or a list of CSV files.
func openCSV(inputs []string, names []string) (map[string]csvzip.Rows, error) {
	if len(inputs) == 1 {
		in := inputs[0]
		if info, err := os.Stat(in); err == nil && info.IsDir() {
			return csvzip.RowsFromDir(in, names...)
		}
		if strings.EqualFold(filepath.Ext(in), ".zip") {
			data, err := os.ReadFile(in)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", in, err)
			}
			return csvzip.RowsFromZip(data)
		}
	}
	return csvzip.RowsFromFiles(inputs...)
}
