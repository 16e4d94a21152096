package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/config"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/common"
)

type options struct {
	envFile string
	file    string
	ci      bool
	timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load delivery records from CSV into the SQL record store",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	cmd.PersistentFlags().StringVar(&opts.file, "file", "", "CSV file with record_id,match_id,pilot_name,... columns (- for stdin)")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "print a JSON result instead of the progress view")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")
	_ = cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Insert records, skipping ids that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed apply", func(ctx context.Context) ([]string, error) {
				in, closeIn, err := openInput(opts.file, cmd.InOrStdin())
				if err != nil {
					return nil, err
				}
				defer closeIn()
				db, err := openDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				return apply(db.WithContext(ctx), in)
			})
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "dry-run",
		Short: "Validate the CSV without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed dry-run", func(ctx context.Context) ([]string, error) {
				in, closeIn, err := openInput(opts.file, cmd.InOrStdin())
				if err != nil {
					return nil, err
				}
				defer closeIn()
				return dryRun(in)
			})
			return err
		},
	})
	return cmd
}

func run(opts *options, title string, action common.Action) ([]string, error) {
	return common.Execute(opts.ci, opts.timeout, title, action)
}

func apply(db *gorm.DB, in io.Reader) ([]string, error) {
	report, err := database.SeedSync(db, in)
	if err != nil {
		return nil, err
	}
	if report.Noop {
		return []string{fmt.Sprintf("nothing to do (%d existing)", report.Skipped)}, nil
	}
	return []string{fmt.Sprintf("created %d, skipped %d existing", report.Created, report.Skipped)}, nil
}

func dryRun(in io.Reader) ([]string, error) {
	records, err := database.ParseSeed(in)
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("%d valid rows", len(records))}
	for _, rec := range records {
		details = append(details, rec.ID+" "+rec.MatchID)
	}
	return details, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open seed file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openDB(envFile string) (*gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg.Driver, cfg.URL)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
