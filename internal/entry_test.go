package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/testutil"
)

func seededDB(t *testing.T) string {
	t.Helper()
	db := testutil.TestDB(t)
	j := testutil.OpenJournal(t, db)
	ctx := context.Background()
	res, err := j.Capture(ctx, journal.CaptureInput{Text: "# Work\nt ship release\n  t tag build\nn retro on friday\n"})
	if err != nil {
		t.Fatal(err)
	}
	if err := j.CompleteTask(ctx, res.EntryIDs[1]); err != nil {
		t.Fatal(err)
	}
	return db.Path()
}

func testConfig(t *testing.T, dbPath string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Journal.Path = dbPath
	cfg.Journal.ArchivePath = filepath.Join(t.TempDir(), "archive")
	cfg.Journal.Follow = false
	return cfg
}

func TestVerify(t *testing.T) {
	cfg := testConfig(t, seededDB(t))

	report, err := Verify(context.Background(), WithConfig(cfg))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Sequence == 0 || report.Digest == "" {
		t.Errorf("report = %+v", report)
	}
}

func TestVerify_RequiresConfig(t *testing.T) {
	if _, err := Verify(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := testConfig(t, seededDB(t))

	n, err := Export(ctx, "work.jsonl", WithConfig(src))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n == 0 {
		t.Fatal("exported no events")
	}

	dst := testConfig(t, filepath.Join(t.TempDir(), "restored.db"))
	dst.Journal.ArchivePath = src.Journal.ArchivePath
	got, err := Import(ctx, "work.jsonl", WithConfig(dst))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got != n {
		t.Errorf("imported %d events, exported %d", got, n)
	}

	srcReport, err := Verify(ctx, WithConfig(src))
	if err != nil {
		t.Fatal(err)
	}
	dstReport, err := Verify(ctx, WithConfig(dst))
	if err != nil {
		t.Fatal(err)
	}
	if srcReport.Digest != dstReport.Digest {
		t.Errorf("digest %s after import, want %s", dstReport.Digest, srcReport.Digest)
	}

	if _, err := Import(ctx, "work.jsonl", WithConfig(dst)); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second import err = %v, want conflict", err)
	}
}

func TestListAndDeleteArchives(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, seededDB(t))

	for _, name := range []string{"b.jsonl", "a.jsonl"} {
		if _, err := Export(ctx, name, WithConfig(cfg)); err != nil {
			t.Fatalf("Export %s: %v", name, err)
		}
	}

	list, err := ListArchives(ctx, WithConfig(cfg))
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(list) != 2 || list[0].Path != "a.jsonl" || list[1].Path != "b.jsonl" {
		t.Fatalf("archives = %+v", list)
	}
	if list[0].Checksum == "" || list[0].Checksum != list[1].Checksum || list[0].Size == 0 {
		t.Errorf("exports of the same journal should match: %+v", list)
	}

	if err := DeleteArchive(ctx, "a.jsonl", WithConfig(cfg)); err != nil {
		t.Fatalf("DeleteArchive: %v", err)
	}
	if err := DeleteArchive(ctx, "../folio.db", WithConfig(cfg)); err == nil {
		t.Error("expected error for a path outside the archive directory")
	}
	list, _ = ListArchives(ctx, WithConfig(cfg))
	if len(list) != 1 || list[0].Path != "b.jsonl" {
		t.Errorf("archives after delete = %+v", list)
	}
}
