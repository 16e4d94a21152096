package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
)

const seedCSV = "record_id,match_id,pilot_name\nrec1,M-1,Alice\nrec2,M-2,Carol\n"

func TestNewRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "seed" {
		t.Fatalf("unexpected root use: %s", cmd.Use)
	}
	for _, name := range []string{"apply", "dry-run"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c == nil {
			t.Fatalf("expected subcommand %q: err=%v", name, err)
		}
	}
	if f := cmd.PersistentFlags().Lookup("file"); f == nil {
		t.Fatal("expected --file flag")
	}
}

func TestRunCIPath(t *testing.T) {
	opts := &options{ci: true}
	details, err := run(opts, "title", func(ctx context.Context) ([]string, error) {
		return []string{"done"}, nil
	})
	if err != nil || len(details) != 1 {
		t.Fatalf("expected success details, got details=%v err=%v", details, err)
	}
}

func TestApplyThenNoop(t *testing.T) {
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	details, err := apply(db, strings.NewReader(seedCSV))
	if err != nil || details[0] != "created 2, skipped 0 existing" {
		t.Fatalf("unexpected first apply %v %v", details, err)
	}
	details, err = apply(db, strings.NewReader(seedCSV))
	if err != nil || details[0] != "nothing to do (2 existing)" {
		t.Fatalf("unexpected second apply %v %v", details, err)
	}
}

func TestDryRunValidates(t *testing.T) {
	details, err := dryRun(strings.NewReader(seedCSV))
	if err != nil || len(details) != 3 || details[0] != "2 valid rows" {
		t.Fatalf("unexpected dry run %v %v", details, err)
	}
	if _, err := dryRun(strings.NewReader("record_id,match_id\n,M-1\n")); err == nil {
		t.Fatal("expected validation error")
	}
}
