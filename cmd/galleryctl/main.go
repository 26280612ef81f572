package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/conf"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/injector"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/spf13/cobra"
)

type app struct {
	config  *conf.Config
	log     *logger.Logger
	toolkit *injector.Toolkit
	cleanup func()
}

// ensureToolkit 按需连接数据库和存储，mutate 可在连接前调整配置
func (a *app) ensureToolkit(mutate func(*conf.Config)) error {
	if a.toolkit != nil {
		return nil
	}
	if mutate != nil {
		mutate(a.config)
	}
	tk, cleanup, err := injector.InitializeToolkit(a.config, a.log)
	if err != nil {
		return err
	}
	a.toolkit = tk
	a.cleanup = cleanup
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

var (
	cfgFile     string
	verbose     bool
	application = &app{}

	rootCmd = &cobra.Command{
		Use:           "galleryctl",
		Short:         "Maintenance commands for the cat gallery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := conf.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.CLI(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			application.config = config
			application.log = log
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path, empty for defaults and env only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newImportCmd(), newSweepCmd(), newMigrateCmd())
}

func main() {
	err := rootCmd.Execute()
	application.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		count   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import random pictures from thecatapi.com",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > biz.MaxImportCount {
				return fmt.Errorf("--count must be between 1 and %d", biz.MaxImportCount)
			}
			if err := application.ensureToolkit(nil); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report, err := application.toolkit.Importer.Import(ctx, count)
			out := cmd.OutOrStdout()
			for _, id := range report.IDs {
				fmt.Fprintf(out, "✅ imported %s\n", id)
			}
			for _, e := range report.Errors {
				fmt.Fprintf(out, "⚠️  %v\n", e)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "📋 %d imported, %d failed\n", len(report.IDs), len(report.Errors))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, fmt.Sprintf("number of pictures (1-%d)", biz.MaxImportCount))
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall import timeout")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove upload files that no entry references",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := application.ensureToolkit(func(c *conf.Config) {
				if dryRun {
					c.Sweeper.DryRun = true
				}
			})
			if err != nil {
				return err
			}

			report, err := application.toolkit.Sweeper.Sweep(cmd.Context())
			out := cmd.OutOrStdout()
			verb := "removed"
			if report.DryRun {
				verb = "would remove"
			}
			for _, name := range report.Orphans {
				fmt.Fprintf(out, "🗑  %s %s\n", verb, name)
			}
			fmt.Fprintf(out, "📋 scanned %d, referenced %d, young %d, foreign %d, orphans %d\n",
				report.Scanned, report.Referenced, report.Young, report.Foreign, len(report.Orphans))
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report orphans")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the entries table",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 即使配置关闭了自动迁移也执行
			err := application.ensureToolkit(func(c *conf.Config) {
				c.Database.AutoMigrate = true
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ entries table is up to date")
			return nil
		},
	}
}
