package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
)

func TestNewRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "migrate" {
		t.Fatalf("unexpected root use: %s", cmd.Use)
	}
	if len(cmd.Commands()) != 2 {
		t.Fatalf("expected 2 subcommands, got %d", len(cmd.Commands()))
	}
	for _, name := range []string{"up", "status"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c == nil {
			t.Fatalf("expected subcommand %q: err=%v", name, err)
		}
	}
	if f := cmd.PersistentFlags().Lookup("ci"); f == nil {
		t.Fatal("expected --ci flag")
	}
}

func TestRunCIPathSuccessAndError(t *testing.T) {
	opts := &options{ci: true, timeout: time.Second}
	details, err := run(opts, "title", func(ctx context.Context) ([]string, error) {
		return []string{"ok"}, nil
	})
	if err != nil || len(details) != 1 || details[0] != "ok" {
		t.Fatalf("expected success details, got details=%v err=%v", details, err)
	}

	_, err = run(opts, "title", func(ctx context.Context) ([]string, error) {
		return nil, context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected propagated error")
	}
}

func TestLoadConfigDBEnvErrors(t *testing.T) {
	envFile := t.TempDir() + "/db.env"
	if err := os.WriteFile(envFile, []byte("DATABASE_DRIVER=oracle\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("DATABASE_DRIVER", "")
	if err := os.Unsetenv("DATABASE_DRIVER"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if _, _, err := loadConfigDB(envFile); err == nil || !strings.Contains(err.Error(), "DATABASE_DRIVER") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestStatusReportsMissingTableThenRows(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	details, err := status(db)
	if err != nil || len(details) != 1 || !strings.Contains(details[0], "missing") {
		t.Fatalf("expected missing table, got %v %v", details, err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	details, err = status(db)
	if err != nil || len(details) != 1 || details[0] != "delivery_records: 0 rows" {
		t.Fatalf("expected empty table with all columns, got %v %v", details, err)
	}
}
