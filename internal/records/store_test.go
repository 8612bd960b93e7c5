package records

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSaveEnrichmentMerges(t *testing.T) {
	s := openTestStore(t)

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	s.SetClock(func() time.Time { return t1 })
	if _, err := s.SaveEnrichment("foo", map[string]any{"price": 199}); err != nil {
		t.Fatalf("first SaveEnrichment: %v", err)
	}

	s.SetClock(func() time.Time { return t2 })
	if _, err := s.SaveEnrichment("foo", map[string]any{"price": 149, "currency": "USD"}); err != nil {
		t.Fatalf("second SaveEnrichment: %v", err)
	}

	doc, err := s.GetEnrichment("foo")
	if err != nil {
		t.Fatalf("GetEnrichment: %v", err)
	}

	if got := doc["price"]; got != float64(149) {
		t.Errorf("price = %v, want 149 (new value wins)", got)
	}
	if got := doc["currency"]; got != "USD" {
		t.Errorf("currency = %v, want USD", got)
	}
	if got := doc["updated_at"]; got != t2.Format(time.RFC3339) {
		t.Errorf("updated_at = %v, want %s", got, t2.Format(time.RFC3339))
	}
}

func TestSaveEnrichmentKeepsUnrelatedFields(t *testing.T) {
	s := openTestStore(t)

	s.SaveEnrichment("pro-q-4", map[string]any{"manufacturer": "FabFilter"})
	s.SaveEnrichment("pro-q-4", map[string]any{"price": 199})

	doc, err := s.GetEnrichment("pro-q-4")
	if err != nil {
		t.Fatalf("GetEnrichment: %v", err)
	}
	if doc["manufacturer"] != "FabFilter" {
		t.Errorf("manufacturer = %v, want it preserved across saves", doc["manufacturer"])
	}
	if doc["price"] != float64(199) {
		t.Errorf("price = %v", doc["price"])
	}
}

func TestSaveComparisonOverwrites(t *testing.T) {
	s := openTestStore(t)

	s.SaveComparison("a-vs-b", map[string]any{"winner": "a", "notes": "first pass"})
	s.SaveComparison("a-vs-b", map[string]any{"winner": "b"})

	doc, err := s.GetComparison("a-vs-b")
	if err != nil {
		t.Fatalf("GetComparison: %v", err)
	}
	if doc["winner"] != "b" {
		t.Errorf("winner = %v, want b", doc["winner"])
	}
	if _, ok := doc["notes"]; ok {
		t.Error("notes survived overwrite; comparison saves must not merge")
	}
	if _, ok := doc["generated_at"]; !ok {
		t.Error("generated_at missing")
	}
}

func TestInvalidSlugRejected(t *testing.T) {
	s := openTestStore(t)

	bad := []string{"", "../escape", "UPPER", "has space", "-leading", "dot.dot"}
	for _, slug := range bad {
		if _, err := s.SaveEnrichment(slug, map[string]any{"x": 1}); err == nil {
			t.Errorf("SaveEnrichment(%q) accepted invalid slug", slug)
		}
		if _, err := s.SaveComparison(slug, map[string]any{"x": 1}); err == nil {
			t.Errorf("SaveComparison(%q) accepted invalid slug", slug)
		}
	}
}

func TestGetMissingRecord(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetEnrichment("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEnrichment error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetComparison("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetComparison error = %v, want ErrNotFound", err)
	}
}

func TestListSorted(t *testing.T) {
	s := openTestStore(t)

	for _, slug := range []string{"zebra", "alpha", "mid"} {
		if _, err := s.SaveEnrichment(slug, map[string]any{"n": 1}); err != nil {
			t.Fatalf("SaveEnrichment(%s): %v", slug, err)
		}
	}

	slugs, err := s.ListEnrichment()
	if err != nil {
		t.Fatalf("ListEnrichment: %v", err)
	}
	want := []string{"alpha", "mid", "zebra"}
	if len(slugs) != len(want) {
		t.Fatalf("got %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Fatalf("got %v, want %v", slugs, want)
		}
	}
}

func TestOneFilePerSlug(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.SaveEnrichment("foo", map[string]any{"a": 1})
	s.SaveEnrichment("foo", map[string]any{"b": 2})

	entries, err := os.ReadDir(filepath.Join(dir, "enrichment"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one file for slug, got %d", len(entries))
	}
	if entries[0].Name() != "foo.json" {
		t.Errorf("file name = %q, want foo.json", entries[0].Name())
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"FabFilter Pro-Q 4", "fabfilter-pro-q-4"},
		{"Pro-Q 4 vs Kirchhoff-EQ", "pro-q-4-vs-kirchhoff-eq"},
		{"  spaced  out  ", "spaced-out"},
		{"Serum 2!", "serum-2"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
