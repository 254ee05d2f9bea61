package eqcache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeAged creates a file under dir with mtime set back by ageDays.
func writeAged(t *testing.T, dir, name string, ageDays int, now time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	ts := now.Add(-time.Duration(ageDays) * 24 * time.Hour)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func writeIndex(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var b strings.Builder
	for k, rel := range entries {
		b.WriteString(k + "\t" + rel + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
}

func TestPruneDeletesStaleUnreferenced(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	index := filepath.Join(dir, "index.tsv")

	fresh := writeAged(t, dir, "fresh.png", 2, now)
	stale := writeAged(t, dir, "stale.png", 30, now)
	kept := writeAged(t, dir, "kept.png", 30, now)
	writeIndex(t, index, map[string]string{"d1": "kept.png"})

	res, err := Prune(Options{
		Dir:       dir,
		IndexPath: index,
		Days:      14,
		Delete:    true,
		Now:       now,
	}, os.Stdout)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if res.Deleted != 1 || res.Retained != 1 {
		t.Errorf("deleted/retained = %d/%d, want 1/1", res.Deleted, res.Retained)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale unreferenced file should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file should survive")
	}
	if _, err := os.Stat(kept); err != nil {
		t.Error("indexed file should survive regardless of age")
	}
	if _, err := os.Stat(index); err != nil {
		t.Error("the index itself must never be deleted")
	}
}

func TestPruneDryRunDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	stale := writeAged(t, dir, "stale.png", 100, now)

	var out bytes.Buffer
	res, err := Prune(Options{
		Dir:    dir,
		Days:   14,
		Report: true,
		Now:    now,
	}, &out)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if res.Deleted != 0 {
		t.Errorf("dry run deleted %d files", res.Deleted)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Error("dry run must leave files in place")
	}
	if !strings.Contains(out.String(), "100 day(s): 1 file(s)") {
		t.Errorf("report missing the 100-day bucket:\n%s", out.String())
	}
}

func TestPruneReportFromSkipsYounger(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeAged(t, dir, "young.png", 3, now)
	writeAged(t, dir, "old.png", 40, now)

	var out bytes.Buffer
	res, err := Prune(Options{
		Dir:    dir,
		Days:   365,
		From:   10,
		Report: true,
		Now:    now,
	}, &out)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if res.Scanned != 2 {
		t.Errorf("scanned = %d, want 2", res.Scanned)
	}
	if _, ok := res.AgeCounts[3]; ok {
		t.Error("files younger than -from should not be counted")
	}
	if res.AgeCounts[40] != 1 {
		t.Errorf("expected one file in the 40-day bucket, got %d", res.AgeCounts[40])
	}
}

func TestPruneRewritesIndex(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	index := filepath.Join(dir, "index.tsv")

	writeAged(t, dir, "a.png", 2, now)
	writeAged(t, dir, "sub/b.png", 60, now)
	// "c.png" is indexed but already missing on disk.
	writeIndex(t, index, map[string]string{
		"da": "a.png",
		"dc": "c.png",
	})

	res, err := Prune(Options{
		Dir:       dir,
		IndexPath: index,
		Days:      14,
		Delete:    true,
		Now:       now,
	}, os.Stdout)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if res.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", res.Deleted)
	}
	if res.IndexDropped != 1 {
		t.Errorf("index dropped = %d, want 1", res.IndexDropped)
	}

	raw, err := os.ReadFile(index)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "da\ta.png") {
		t.Errorf("surviving entry missing from index:\n%s", content)
	}
	if strings.Contains(content, "c.png") {
		t.Errorf("missing file's entry should be dropped:\n%s", content)
	}
}

func TestPruneMissingIndexIsEmpty(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	stale := writeAged(t, dir, "stale.png", 30, now)

	res, err := Prune(Options{
		Dir:       dir,
		IndexPath: filepath.Join(dir, "no-such-index.tsv"),
		Days:      14,
		Delete:    true,
		Now:       now,
	}, os.Stdout)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", res.Deleted)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file should be deleted with no index protecting it")
	}
}

func TestPruneThresholdIsStrict(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	exact := writeAged(t, dir, "exact.png", 14, now)

	res, err := Prune(Options{
		Dir:    dir,
		Days:   14,
		Delete: true,
		Now:    now,
	}, os.Stdout)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Deleted != 0 {
		t.Errorf("a file exactly at the threshold should survive, deleted = %d", res.Deleted)
	}
	if _, err := os.Stat(exact); err != nil {
		t.Error("threshold-age file should remain")
	}
}
