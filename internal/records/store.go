// Package records persists enrichment and comparison documents as one JSON
// file per slug. Enrichment saves are read-merge-write (new fields win);
// comparison saves are full overwrites.
//
// There is no cross-process file locking: concurrent writers to the same
// slug from separate processes can interleave. Within one process, calls
// arrive sequentially from the agent loop, so the read-merge-write path is
// race-free.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no record exists for a slug.
var ErrNotFound = errors.New("record not found")

// ErrInvalidSlug is returned for slugs that fail validation.
var ErrInvalidSlug = errors.New("invalid slug")

const (
	enrichmentDir  = "enrichment"
	comparisonsDir = "comparisons"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Store reads and writes record documents under a data directory.
type Store struct {
	dataDir string
	now     func() time.Time
}

// Open creates the record directories under dataDir and returns a Store.
func Open(dataDir string) (*Store, error) {
	for _, sub := range []string{enrichmentDir, comparisonsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}
	return &Store{dataDir: dataDir, now: time.Now}, nil
}

// SetClock overrides the timestamp source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// ValidateSlug checks that slug is a URL-safe identifier. Doubles as a
// traversal guard for the file path built from it.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSlug, slug, slugPattern)
	}
	return nil
}

// Slugify converts free text into a record slug.
func Slugify(text string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func (s *Store) path(dir, slug string) string {
	return filepath.Join(s.dataDir, dir, slug+".json")
}

// SaveEnrichment merges data into the enrichment record for slug. Existing
// fields are kept unless the new data carries the same key; updated_at is
// refreshed on every save. Returns the resolved file path.
func (s *Store) SaveEnrichment(slug string, data map[string]any) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}

	path := s.path(enrichmentDir, slug)

	merged := make(map[string]any)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &merged); err != nil {
			return "", fmt.Errorf("parsing existing record %s: %w", slug, err)
		}
	case os.IsNotExist(err):
		// first save for this slug
	default:
		return "", fmt.Errorf("reading record %s: %w", slug, err)
	}

	for k, v := range data {
		merged[k] = v
	}
	merged["updated_at"] = s.now().UTC().Format(time.RFC3339)

	if err := s.write(path, merged); err != nil {
		return "", err
	}
	return path, nil
}

// SaveComparison overwrites the comparison record for slug with data plus a
// generated_at timestamp. No merge with prior content.
func (s *Store) SaveComparison(slug string, data map[string]any) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}

	doc := make(map[string]any, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["generated_at"] = s.now().UTC().Format(time.RFC3339)

	path := s.path(comparisonsDir, slug)
	if err := s.write(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) write(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// GetEnrichment loads the enrichment record for slug.
func (s *Store) GetEnrichment(slug string) (map[string]any, error) {
	return s.read(enrichmentDir, slug)
}

// GetComparison loads the comparison record for slug.
func (s *Store) GetComparison(slug string) (map[string]any, error) {
	return s.read(comparisonsDir, slug)
}

func (s *Store) read(dir, slug string) (map[string]any, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(dir, slug))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", slug, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", slug, err)
	}
	return doc, nil
}

// ListEnrichment returns all enrichment slugs, sorted.
func (s *Store) ListEnrichment() ([]string, error) {
	return s.list(enrichmentDir)
}

// ListComparisons returns all comparison slugs, sorted.
func (s *Store) ListComparisons() ([]string, error) {
	return s.list(comparisonsDir)
}

func (s *Store) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, dir))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(slugs)
	return slugs, nil
}
