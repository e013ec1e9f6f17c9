package registry_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/registry"
	"reel/internal/services"
)

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func newTestStore(t *testing.T) (*registry.Store, *testClock) {
	t.Helper()
	clock := &testClock{current: time.Date(2024, 1, 31, 13, 55, 1, 123456000, time.UTC)}
	store, err := registry.NewStore(t.TempDir(), logging.NewNop(), registry.WithClock(clock.now))
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	return store, clock
}

func TestSaveCreatesOrderedTimestampFilenames(t *testing.T) {
	store, clock := newTestStore(t)

	first, err := store.Save(job.Record{"id": "video_a", "status": "queued"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if first != "20240131_135501_123456.json" {
		t.Fatalf("unexpected filename %q", first)
	}

	// Same instant collides, so the name bumps forward a microsecond.
	second, err := store.Save(job.Record{"id": "video_b", "status": "queued"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if second != "20240131_135501_123457.json" {
		t.Fatalf("expected microsecond bump, got %q", second)
	}

	// A clock that steps backwards must not break the sort order.
	clock.current = clock.current.Add(-time.Hour)
	third, err := store.Save(job.Record{"id": "video_c", "status": "queued"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	names := []string{first, second, third}
	if !slices.IsSorted(names) {
		t.Fatalf("expected filenames to sort in save order, got %v", names)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), first))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	want := "{\n  \"id\": \"video_a\",\n  \"status\": \"queued\"\n}\n"
	if string(data) != want {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestUpdateNeverCreates(t *testing.T) {
	store, _ := newTestStore(t)
	record := job.Record{"id": "video_a", "status": "completed"}

	if ok, err := store.Update(registry.LabelCustom, record); err != nil || ok {
		t.Fatalf("expected Custom label to be a no-op, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.Update("20990101_000000_000000.json | video_a | queued", record); err != nil || ok {
		t.Fatalf("expected missing target to report false, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.Update("../evil.json | video_a | queued", record); err != nil || ok {
		t.Fatalf("expected traversal label to be rejected, got ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "..", "evil.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file outside the registry, stat returned %v", err)
	}

	name, err := store.Save(job.Record{"id": "video_a", "status": "queued"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != name {
		t.Fatalf("unexpected listing %v", entries)
	}
	ok, err := store.Update(entries[0].Label(), record)
	if err != nil || !ok {
		t.Fatalf("expected update to succeed, got ok=%v err=%v", ok, err)
	}
	updated, err := store.Read(name)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if updated.Status() != job.StatusCompleted {
		t.Fatalf("expected completed after update, got %q", updated.Status())
	}
}

func TestListSkipsCorruptFilesAndLabelsUnknowns(t *testing.T) {
	store, clock := newTestStore(t)

	first, err := store.Save(job.Record{"id": "video_a", "status": "queued"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	clock.current = clock.current.Add(time.Second)
	if _, err := store.Save(job.Record{"id": "video_b", "status": "completed"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	clock.current = clock.current.Add(time.Second)
	if _, err := store.Save(job.Record{"note": "no id or status"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	corruptPath := filepath.Join(store.Dir(), "zz_corrupt.json")
	if err := os.WriteFile(corruptPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected corrupt file to be skipped, got %d entries", len(entries))
	}
	if entries[0].Filename != first || entries[0].ID != "video_a" || entries[0].Status != "queued" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if got := entries[0].Label(); got != first+" | video_a | queued" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := entries[2].Label(); !strings.HasSuffix(got, " | unknown | unknown") {
		t.Fatalf("expected unknown placeholders, got %q", got)
	}

	labels, err := store.Labels()
	if err != nil {
		t.Fatalf("Labels returned error: %v", err)
	}
	if len(labels) != 4 || labels[0] != registry.LabelCustom {
		t.Fatalf("expected Custom sentinel first, got %v", labels)
	}
}

func TestResolveIDFallsBackToTypedID(t *testing.T) {
	store, clock := newTestStore(t)

	if _, err := store.Save(job.Record{"id": "video_a", "status": "queued"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	clock.current = clock.current.Add(time.Second)
	if _, err := store.Save(job.Record{"status": "queued"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if got := store.ResolveID(entries[0].Label(), "typed"); got != "video_a" {
		t.Fatalf("expected saved id to win, got %q", got)
	}
	if got := store.ResolveID(registry.LabelCustom, "  typed  "); got != "typed" {
		t.Fatalf("expected trimmed typed id for Custom, got %q", got)
	}
	if got := store.ResolveID("", "typed"); got != "typed" {
		t.Fatalf("expected typed id for blank label, got %q", got)
	}
	if got := store.ResolveID("20990101_000000_000000.json | gone | queued", "typed"); got != "typed" {
		t.Fatalf("expected typed id when the file is gone, got %q", got)
	}
	if got := store.ResolveID(entries[1].Label(), "typed"); got != "typed" {
		t.Fatalf("expected typed id when the record has no id, got %q", got)
	}
}

func TestDeleteprefersLabelAndScansByID(t *testing.T) {
	store, clock := newTestStore(t)

	fileA, err := store.Save(job.Record{"id": "video_a", "status": "completed"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	clock.current = clock.current.Add(time.Second)
	fileB, err := store.Save(job.Record{"id": "video_b", "status": "completed"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	labelA := fileA + " | video_a | completed"

	// A concrete label wins even when the id names another job.
	removed, err := store.Delete(labelA, "video_b")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed != fileA {
		t.Fatalf("expected %q removed, got %q", fileA, removed)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), fileB)); err != nil {
		t.Fatalf("expected %q untouched, stat returned %v", fileB, err)
	}

	// A label whose file is already gone does not fall back to the id scan.
	removed, err = store.Delete(labelA, "video_b")
	if err != nil || removed != "" {
		t.Fatalf("expected quiet no-op, got %q err=%v", removed, err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), fileB)); err != nil {
		t.Fatalf("expected %q still untouched, stat returned %v", fileB, err)
	}

	// Without a label the first record carrying the id is removed.
	removed, err = store.Delete(registry.LabelCustom, "video_b")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed != fileB {
		t.Fatalf("expected %q removed, got %q", fileB, removed)
	}

	removed, err = store.Delete("", "video_missing")
	if err != nil || removed != "" {
		t.Fatalf("expected quiet no-op for unknown id, got %q err=%v", removed, err)
	}
}

func TestReadValidatesAndRoundTrips(t *testing.T) {
	store, _ := newTestStore(t)

	name, err := store.Save(job.Record{"id": "video_a", "status": "queued", "seconds": json.Number("8")})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	record, err := store.Read(name)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if record["seconds"] != json.Number("8") {
		t.Fatalf("expected seconds to stay a number literal, got %T %v", record["seconds"], record["seconds"])
	}

	if _, err := store.Read("20990101_000000_000000.json"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := store.Read("../escape.json"); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for traversal, got %v", err)
	}
	if _, err := store.Read(""); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty name, got %v", err)
	}
}
