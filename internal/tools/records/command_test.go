package records

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jszwec/csvutil"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
)

func seededStore(t *testing.T) StoreFactory {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewGormRecordRepository(db)
	for i, st := range []domain.DeliveryStatus{domain.StatusUnset, domain.StatusPending, domain.StatusVerified} {
		rec := &domain.DeliveryRecord{
			ID:           fmt.Sprintf("rec%d", i+1),
			MatchID:      fmt.Sprintf("M-%d", i+1),
			AnalystEmail: fmt.Sprintf("a%d@example.com", i+1),
			Status:       st,
			Code:         "123456",
		}
		if err := repo.Create(context.Background(), rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	return func() (repository.RecordStore, func(), error) {
		return repo, func() {}, nil
	}
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestNewRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "records" {
		t.Fatalf("unexpected root use: %s", cmd.Use)
	}
	for _, name := range []string{"list", "export"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c == nil {
			t.Fatalf("expected subcommand %q: err=%v", name, err)
		}
	}
}

func TestLoadFiltersByStatus(t *testing.T) {
	open := seededStore(t)
	recs, err := load(context.Background(), open, &options{envFile: missingEnv(t), status: "Verificado"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "rec3" {
		t.Fatalf("expected only rec3, got %+v", recs)
	}

	if _, err := load(context.Background(), open, &options{envFile: missingEnv(t), status: "lost"}); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestLoadPropagatesFactoryError(t *testing.T) {
	boom := errors.New("no store")
	open := func() (repository.RecordStore, func(), error) { return nil, nil, boom }
	if _, err := load(context.Background(), open, &options{envFile: missingEnv(t)}); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
}

func TestListPage(t *testing.T) {
	recs, err := load(context.Background(), seededStore(t), &options{envFile: missingEnv(t)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	lines := listPage(recs, repository.PageRequest{Page: 2, PageSize: 2})
	if lines[0] != "page 2/2, 3 records" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "rec3") {
		t.Fatalf("unexpected page lines %v", lines)
	}
}

func TestExportCSVOmitsSecrets(t *testing.T) {
	recs, err := load(context.Background(), seededStore(t), &options{envFile: missingEnv(t)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := exportCSV(&buf, recs); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Contains(buf.String(), "123456") {
		t.Fatal("confirmation code leaked into export")
	}
	var back []domain.DeliveryRecord
	if err := csvutil.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back) != 3 || back[1].Status != domain.StatusPending {
		t.Fatalf("unexpected rows %+v", back)
	}
}

func TestExportCommandWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "records.csv")
	cmd := newRootCommand(seededStore(t))
	cmd.SetArgs([]string{"export", "--ci", "--env-file", missingEnv(t), "--status", "pending", "--out", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "rec2") || strings.Contains(string(b), "rec1") {
		t.Fatalf("unexpected export %q", b)
	}
}
