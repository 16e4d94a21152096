package records

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/di"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/common"
)

// StoreFactory opens the configured record store and a cleanup for it.
type StoreFactory func() (repository.RecordStore, func(), error)

type options struct {
	envFile  string
	ci       bool
	timeout  time.Duration
	page     int
	pageSize int
	status   string
	out      string
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(di.InitializeRecordStore)
}

func newRootCommand(open StoreFactory) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect delivery records in the configured store",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "print a JSON result instead of the progress view")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")
	cmd.PersistentFlags().StringVar(&opts.status, "status", "", "only records with this status (unset, pending, verified)")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print one page of records",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Execute(opts.ci, opts.timeout, "records list", func(ctx context.Context) ([]string, error) {
				recs, err := load(ctx, open, opts)
				if err != nil {
					return nil, err
				}
				return listPage(recs, repository.PageRequest{Page: opts.page, PageSize: opts.pageSize}), nil
			})
			return err
		},
	}
	list.Flags().IntVar(&opts.page, "page", repository.DefaultPage, "page number")
	list.Flags().IntVar(&opts.pageSize, "page-size", repository.DefaultPageSize, "records per page")

	export := &cobra.Command{
		Use:   "export",
		Short: "Write records as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Execute(opts.ci, opts.timeout, "records export", func(ctx context.Context) ([]string, error) {
				recs, err := load(ctx, open, opts)
				if err != nil {
					return nil, err
				}
				w, closeOut, err := openOutput(opts.out)
				if err != nil {
					return nil, err
				}
				defer closeOut()
				if err := exportCSV(w, recs); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("%d records written to %s", len(recs), opts.out)}, nil
			})
			return err
		},
	}
	export.Flags().StringVar(&opts.out, "out", "-", "CSV destination, - for stdout")

	cmd.AddCommand(list, export)
	return cmd
}

func load(ctx context.Context, open StoreFactory, opts *options) ([]domain.DeliveryRecord, error) {
	var want domain.DeliveryStatus
	if opts.status != "" {
		s, err := domain.ParseStatusLabel(opts.status)
		if err != nil {
			return nil, err
		}
		want = s
	}
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	store, cleanup, err := open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	recs, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if want == "" {
		return recs, nil
	}
	out := recs[:0]
	for _, r := range recs {
		if r.Status == want {
			out = append(out, r)
		}
	}
	return out, nil
}

func listPage(recs []domain.DeliveryRecord, req repository.PageRequest) []string {
	page := repository.Paginate(recs, req)
	lines := make([]string, 0, len(page.Items)+1)
	lines = append(lines, fmt.Sprintf("page %d/%d, %d records", page.Page, page.TotalPages, page.Total))
	for _, r := range page.Items {
		lines = append(lines, fmt.Sprintf("%s  %-12s %-9s %s", r.ID, r.MatchID, r.Status, r.AnalystEmail))
	}
	return lines
}

func exportCSV(w io.Writer, recs []domain.DeliveryRecord) error {
	if len(recs) == 0 {
		recs = []domain.DeliveryRecord{}
	}
	b, err := csvutil.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
