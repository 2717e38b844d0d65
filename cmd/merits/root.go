package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/internal/config"
	"github.com/aretw0/merits/internal/logging"
	"github.com/aretw0/merits/internal/presentation/tui"
	"github.com/aretw0/merits/pkg/family"
	"github.com/spf13/cobra"
)

// app holds what every command shares once the persistent flags are parsed.
type app struct {
	configPath string
	familyDirs []string
	logLevel   string

	cfg      config.Config
	logger   *slog.Logger
	families *family.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "merits",
		Short: "merits converts railway timetable messages to CSV tables and back",
		Long: `merits reads EDIFACT-style timetable messages (TSDUPD, SKDUPD and any family
described in YAML), validates them against their segment tree and converts them
to one CSV file per table. The CSV files convert back to the same message.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			if tui.IsTerminal(cmd.OutOrStdout()) {
				tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(merits.Version))
			}
			cmd.Help()
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Service configuration file (YAML)")
	flags.StringArrayVar(&a.familyDirs, "families", nil, "Directory of family definitions, loaded after the built-in ones (repeatable)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newFamiliesCmd(a),
		newValidateCmd(a),
		newDumpCmd(a),
		newGraphCmd(a),
		newDescribeCmd(a),
		newConvertCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	cfg.FamilyDirs = append(cfg.FamilyDirs, a.familyDirs...)
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logging.NewWriter(cmd.ErrOrStderr(), level)

	a.families, err = family.Builtin()
	if err != nil {
		return fmt.Errorf("failed to load built-in families: %w", err)
	}
	for _, dir := range cfg.FamilyDirs {
		if err := a.families.LoadDir(dir); err != nil {
			return err
		}
		a.logger.Debug("loaded families", "dir", dir)
	}
	return nil
}

func (a *app) family(name string) (*family.Family, error) {
	if name == "" {
		return nil, fmt.Errorf("a family is required, one of %s", strings.Join(a.families.Names(), ", "))
	}
	return a.families.Get(name)
}

func (a *app) converter(name string, opts ...merits.Option) (*merits.Converter, error) {
	f, err := a.family(name)
	if err != nil {
		return nil, err
	}
	base := []merits.Option{
		merits.WithLogger(a.logger),
		merits.WithLineSeparator(a.cfg.LineSeparator),
		merits.WithLockTTL(a.cfg.Store.LockTTL),
	}
	return merits.New(f, append(base, opts...)...)
}
