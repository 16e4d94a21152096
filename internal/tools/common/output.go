package common

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/tools/ui"
)

// CIResult is the single JSON line printed in --ci mode.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	res := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	if encErr := enc.Encode(res); encErr != nil {
		fmt.Fprintf(os.Stderr, "write result: %v\n", encErr)
	}
}

type Action func(ctx context.Context) ([]string, error)

// Execute runs action either headless with a JSON result or behind the
// terminal progress view.
func Execute(ci bool, timeout time.Duration, title string, action Action) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if !ci {
		return ui.Run(title, func(ctx context.Context) ([]string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return action(ctx)
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	details, err := action(ctx)
	PrintCIResult(err == nil, title, details, err)
	return details, err
}
