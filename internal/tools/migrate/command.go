package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/config"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL record store schema",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "print a JSON result instead of the progress view")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Create or update the delivery records table",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "migrate up", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := database.Migrate(db.WithContext(ctx)); err != nil {
					return nil, err
				}
				return []string{"delivery_records up to date"}, nil
			})
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report table presence, row count and missing columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "migrate status", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				return status(db.WithContext(ctx))
			})
			return err
		},
	})
	return cmd
}

func run(opts *options, title string, action common.Action) ([]string, error) {
	return common.Execute(opts.ci, opts.timeout, title, action)
}

func loadConfigDB(envFile string) (*config.DatabaseConfig, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return &cfg, db, nil
}

func status(db *gorm.DB) ([]string, error) {
	m := db.Migrator()
	if !m.HasTable(&domain.DeliveryRecord{}) {
		return []string{"delivery_records: missing"}, nil
	}
	var count int64
	if err := db.Model(&domain.DeliveryRecord{}).Count(&count).Error; err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("delivery_records: %d rows", count)}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(&domain.DeliveryRecord{}); err != nil {
		return nil, err
	}
	for _, f := range stmt.Schema.Fields {
		if f.DBName != "" && !m.HasColumn(&domain.DeliveryRecord{}, f.DBName) {
			details = append(details, "missing column "+f.DBName)
		}
	}
	return details, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
