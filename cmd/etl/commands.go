package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Joel785/Medallion-Project/internal/config"
	"github.com/Joel785/Medallion-Project/internal/services"
	"github.com/Joel785/Medallion-Project/internal/source"
)

type rootFlags struct {
	configPath string
	format     string
}

func newRootCmd() *cobra.Command {
	v := config.New()
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "etl",
		Short:         "Medallion ETL for clinic data: bronze, silver, gold and reconciliation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	pf.StringVarP(&flags.format, "format", "o", "table", "Output format: table, json or yaml")
	pf.String("db-url", "", "PostgreSQL connection URL (overrides db.* settings)")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("processing-date", "", "Processing date YYYY-MM-DD (default: today, UTC)")
	pf.Bool("parallel", true, "Validate the kinds of one stage concurrently")
	mustBind(v, "db.url", pf.Lookup("db-url"))
	mustBind(v, "logging.level", pf.Lookup("log-level"))
	mustBind(v, "pipeline.processing_date", pf.Lookup("processing-date"))
	mustBind(v, "pipeline.parallel_stages", pf.Lookup("parallel"))

	root.AddCommand(
		newMigrateCmd(v, flags),
		newBronzeCmd(v, flags),
		newSilverCmd(v, flags),
		newGoldCmd(v, flags),
		newReconcileCmd(v, flags),
		newAllCmd(v, flags),
	)
	return root
}

// localFlags maps config keys onto flags several subcommands declare. Viper
// keeps one binding per key, so they are bound for the running command only.
var localFlags = map[string]string{
	"source.path":     "source",
	"pipeline.strict": "strict",
}

// run builds the app for one command and always closes it.
func run(cmd *cobra.Command, v *viper.Viper, flags *rootFlags, fn func(ctx context.Context, a *app) error) error {
	if _, err := newRenderer(flags.format); err != nil {
		return err
	}
	for key, name := range localFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			mustBind(v, key, f)
		}
	}
	a, err := newApp(cmd.Context(), v, flags.configPath)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

func newMigrateCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the bronze, silver, audit and gold schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				return a.store.Migrate(ctx)
			})
		},
	}
}

func newBronzeCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bronze",
		Short: "Load raw extracts into a new bronze batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				src, err := source.Open(a.cfg.Source.Path)
				if err != nil {
					return fmt.Errorf("%w: %w", services.ErrSourceUnavailable, err)
				}
				load, err := a.bronze().Load(ctx, src)
				if err != nil {
					return err
				}
				r, _ := newRenderer(flags.format)
				return r.bronze(cmd.OutOrStdout(), load)
			})
		},
	}
	addSourceFlag(cmd)
	return cmd
}

func newSilverCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "silver",
		Short: "Validate every pending bronze batch into silver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				date, err := a.processingDate()
				if err != nil {
					return err
				}
				svc, err := a.silver()
				if err != nil {
					return err
				}
				outcomes, err := svc.ProcessPending(ctx, date)
				if err != nil {
					return err
				}
				r, _ := newRenderer(flags.format)
				return r.batches(cmd.OutOrStdout(), outcomes)
			})
		},
	}
}

func newGoldCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gold",
		Short: "Rebuild every gold table from silver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				date, err := a.processingDate()
				if err != nil {
					return err
				}
				info, err := a.gold().Rebuild(ctx, date)
				if err != nil {
					return err
				}
				r, _ := newRenderer(flags.format)
				return r.build(cmd.OutOrStdout(), &info)
			})
		},
	}
}

func newReconcileCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare silver and gold figures and record the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				report, err := a.reconcile().Run(ctx, a.cfg.Pipeline.Strict)
				if report != nil {
					r, _ := newRenderer(flags.format)
					if rerr := r.report(cmd.OutOrStdout(), report); rerr != nil {
						return rerr
					}
				}
				return err
			})
		},
	}
	addStrictFlag(cmd)
	return cmd
}

func newAllCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	var skipBronze bool
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run bronze, silver, gold and reconcile in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, func(ctx context.Context, a *app) error {
				date, err := a.processingDate()
				if err != nil {
					return err
				}
				var src source.Source
				if !skipBronze {
					if src, err = source.Open(a.cfg.Source.Path); err != nil {
						return fmt.Errorf("%w: %w", services.ErrSourceUnavailable, err)
					}
				}
				silver, err := a.silver()
				if err != nil {
					return err
				}

				p := services.NewPipeline(a.bronze(), silver, a.gold(), a.reconcile(), a.logger)
				summary, err := p.Run(ctx, src, services.RunOptions{
					ProcessingDate: date,
					Strict:         a.cfg.Pipeline.Strict,
				})
				r, _ := newRenderer(flags.format)
				if rerr := r.summary(cmd.OutOrStdout(), summary); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}
	addSourceFlag(cmd)
	addStrictFlag(cmd)
	cmd.Flags().BoolVar(&skipBronze, "skip-bronze", false, "Process pending batches without loading a new one")
	return cmd
}

func addSourceFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "CSV export directory or .xlsx workbook (default: source.path)")
}

func addStrictFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "Exit with status 2 when any reconciliation rule fails")
}

func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
	}
}
