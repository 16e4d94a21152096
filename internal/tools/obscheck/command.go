package obscheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/common"
)

const metricPrefix = "custody_"

type options struct {
	baseURL string
	ci      bool
	timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "obscheck",
		Short: "Probe a running instance for health and metrics",
	}
	run := &cobra.Command{
		Use:   "run",
		Short: "Check liveness, readiness, the login page and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Execute(opts.ci, opts.timeout, "obscheck", func(ctx context.Context) ([]string, error) {
				return probe(ctx, opts)
			})
			return err
		},
	}
	run.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "instance to probe")
	run.Flags().BoolVar(&opts.ci, "ci", false, "print a JSON result instead of the progress view")
	run.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	cmd.AddCommand(run)
	return cmd
}

func probe(ctx context.Context, opts *options) ([]string, error) {
	var details []string
	for _, path := range []string{"/health/live", "/health/ready", "/login"} {
		if _, err := instanceGET(ctx, opts, path); err != nil {
			return details, err
		}
		details = append(details, path+": ok")
	}
	body, err := instanceGET(ctx, opts, "/metrics")
	if err != nil {
		return details, err
	}
	series, err := countSeries(body, metricPrefix)
	if err != nil {
		return details, err
	}
	details = append(details, fmt.Sprintf("/metrics: %d %s series", series, metricPrefix))
	return details, nil
}

func instanceGET(ctx context.Context, opts *options, path string) ([]byte, error) {
	base, err := url.Parse(opts.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.baseURL)
	}
	target := base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// countSeries counts exposition lines for metrics starting with prefix. A
// scrape with no Go runtime metrics is treated as a wrong endpoint.
func countSeries(body []byte, prefix string) (int, error) {
	var n int
	var runtime bool
	sc := bufio.NewScanner(strings.NewReader(string(body)))
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "go_goroutines") {
			runtime = true
		}
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if !runtime {
		return 0, fmt.Errorf("metrics endpoint does not look like a prometheus scrape")
	}
	return n, nil
}
