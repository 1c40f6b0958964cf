package legislation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parlwatch-backend/lib/scrapers/chambre"
)

// StoreError reports a failed read or write of a year dataset. Fatal to
// the run: losing persistence means losing the scrape's work.
type StoreError struct {
	Path string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Dataset is the on-disk artifact for one legislative year. CurrentYear
// is the site's label ("2024-2025"); the filename is keyed by the end
// year.
type Dataset struct {
	TotalCount    int                       `json:"total_count"`
	CurrentYear   string                    `json:"current_year"`
	CurrentYearId string                    `json:"current_year_id,omitempty"`
	ScrapedAt     time.Time                 `json:"scraped_at"`
	Data          []chambre.LegislationItem `json:"data"`
}

// ArtifactYear derives the filename key from a year label:
// "2024-2025" -> "2025".
func ArtifactYear(label string) string {
	if i := strings.LastIndex(label, "-"); i >= 0 {
		return label[i+1:]
	}
	return label
}

// ReadDataset loads the persisted artifact for a year as-is. A missing
// file yields an empty dataset.
func ReadDataset(dir string, year string) (Dataset, error) {
	path := filepath.Join(dir, fmt.Sprintf("extracted-data-%s.json", year))
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Dataset{CurrentYear: year, Data: []chambre.LegislationItem{}}, nil
	}
	if err != nil {
		return Dataset{}, &StoreError{Path: path, Op: "read", Err: err}
	}
	var dataset Dataset
	if err := json.Unmarshal(body, &dataset); err != nil {
		return Dataset{}, &StoreError{Path: path, Op: "decode", Err: err}
	}
	return dataset, nil
}

// Store keeps the items of a single year, keyed by law number, and
// persists them as data/extracted-data-<year>.json. Replacing an item
// keeps its original position so reruns produce stable output.
type Store struct {
	dir  string
	year string

	// the site's label and filter id for the year, carried into the
	// artifact
	Label  string
	YearId string

	order []string
	items map[string]chambre.LegislationItem
}

func NewStore(dir string, year string) *Store {
	return &Store{
		dir:   dir,
		year:  year,
		Label: year,
		items: map[string]chambre.LegislationItem{},
	}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, fmt.Sprintf("extracted-data-%s.json", s.year))
}

// Load reads the persisted dataset. A missing file is an empty store,
// not an error.
func (s *Store) Load() error {
	body, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &StoreError{Path: s.path(), Op: "read", Err: err}
	}
	var dataset Dataset
	if err := json.Unmarshal(body, &dataset); err != nil {
		return &StoreError{Path: s.path(), Op: "decode", Err: err}
	}

	if dataset.CurrentYear != "" {
		s.Label = dataset.CurrentYear
	}
	if dataset.CurrentYearId != "" {
		s.YearId = dataset.CurrentYearId
	}
	s.order = s.order[:0]
	s.items = map[string]chambre.LegislationItem{}
	for _, item := range dataset.Data {
		if _, exists := s.items[item.LawNumber]; !exists {
			s.order = append(s.order, item.LawNumber)
		}
		s.items[item.LawNumber] = item
	}
	return nil
}

func (s *Store) Has(lawNumber string) bool {
	_, ok := s.items[lawNumber]
	return ok
}

func (s *Store) Get(lawNumber string) (chambre.LegislationItem, bool) {
	item, ok := s.items[lawNumber]
	return item, ok
}

// Put inserts or replaces by law number. A replacement overwrites the
// whole record in place.
func (s *Store) Put(item chambre.LegislationItem) {
	if _, exists := s.items[item.LawNumber]; !exists {
		s.order = append(s.order, item.LawNumber)
	}
	s.items[item.LawNumber] = item
}

func (s *Store) Len() int {
	return len(s.order)
}

// Items returns the dataset in insertion order.
func (s *Store) Items() []chambre.LegislationItem {
	out := make([]chambre.LegislationItem, 0, len(s.order))
	for _, lawNumber := range s.order {
		out = append(out, s.items[lawNumber])
	}
	return out
}

// Persist writes the dataset atomically (temp file + rename) so a crash
// mid-write never leaves a truncated artifact.
func (s *Store) Persist() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &StoreError{Path: s.dir, Op: "mkdir", Err: err}
	}

	dataset := Dataset{
		TotalCount:    s.Len(),
		CurrentYear:   s.Label,
		CurrentYearId: s.YearId,
		ScrapedAt:     time.Now().UTC(),
		Data:          s.Items(),
	}
	body, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return &StoreError{Path: s.path(), Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "extracted-data-*.tmp")
	if err != nil {
		return &StoreError{Path: s.path(), Op: "write", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return &StoreError{Path: s.path(), Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StoreError{Path: s.path(), Op: "write", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return &StoreError{Path: s.path(), Op: "rename", Err: err}
	}
	return nil
}
