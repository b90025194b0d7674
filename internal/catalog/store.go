package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// Catalog is the persisted product list of one site
type Catalog struct {
	Products []Product
}

// Identifiers returns a registry of the catalog's real identifiers
func (c *Catalog) Identifiers() *DedupRegistry {
	r := NewDedupRegistry()
	for _, p := range c.Products {
		r.Add(p.ID)
	}
	return r
}

// Len returns the number of stored products
func (c *Catalog) Len() int {
	return len(c.Products)
}

// LoadState describes what Load found on disk
type LoadState struct {
	Exists bool
	Err    error
}

// FirstBuild reports whether the run has no usable catalog to monitor
func (s LoadState) FirstBuild() bool {
	return !s.Exists || s.Err != nil
}

// Store reads and writes the catalog and price history files of one site
type Store struct {
	site string
	dir  string
	now  func() time.Time
	log  *logger.Logger
}

// NewStore creates a store rooted at dataDir/site
func NewStore(dataDir, site string) *Store {
	return &Store{
		site: site,
		dir:  filepath.Join(dataDir, site),
		now:  time.Now,
		log:  logger.ForComponent("catalog").WithField("site", site),
	}
}

// WithClock replaces the clock used to stamp records
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// CatalogPath returns the catalog file path
func (s *Store) CatalogPath() string {
	return filepath.Join(s.dir, s.site+"_medicamentos.json")
}

// HistoryPath returns the price history file path
func (s *Store) HistoryPath() string {
	return filepath.Join(s.dir, "price_history.json")
}

// Load reads the persisted catalog. A missing or unreadable file yields an
// empty catalog; the state tells the caller which case applied.
func (s *Store) Load() (*Catalog, LoadState) {
	data, err := os.ReadFile(s.CatalogPath())
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info().Str("path", s.CatalogPath()).Msg("No catalog yet, starting first build")
		return &Catalog{}, LoadState{}
	}
	if err != nil {
		storageErr := apperrors.NewStorage(s.site, "read catalog", err)
		s.log.Warn().Err(storageErr).Msg("Catalog unreadable, reinitializing empty")
		return &Catalog{}, LoadState{Exists: true, Err: storageErr}
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		storageErr := apperrors.NewStorage(s.site, "parse catalog", err)
		s.log.Warn().Err(storageErr).Msg("Catalog corrupt, reinitializing empty")
		return &Catalog{}, LoadState{Exists: true, Err: storageErr}
	}

	s.log.Debug().Int("products", len(products)).Msg("Catalog loaded")
	return &Catalog{Products: products}, LoadState{Exists: true}
}

// Append stamps items with the current time, adds them to the catalog and
// persists the union. Existing entries are left untouched.
func (s *Store) Append(c *Catalog, items []Product) error {
	if len(items) > 0 {
		now := s.now()
		for _, item := range items {
			item.LastUpdated = now
			c.Products = append(c.Products, item)
		}
	}
	return s.Save(c)
}

// Save persists the catalog as it is
func (s *Store) Save(c *Catalog) error {
	products := c.Products
	if products == nil {
		products = []Product{}
	}
	if err := writeJSON(s.CatalogPath(), products); err != nil {
		return apperrors.NewStorage(s.site, "write catalog", err)
	}
	return nil
}

// LoadHistory reads the price history; any error yields an empty history
func (s *Store) LoadHistory() History {
	data, err := os.ReadFile(s.HistoryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return History{}
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Price history unreadable, starting empty")
		return History{}
	}

	history := History{}
	if err := json.Unmarshal(data, &history); err != nil {
		s.log.Warn().Err(err).Msg("Price history corrupt, starting empty")
		return History{}
	}
	for id, series := range history {
		if series == nil {
			s.log.Warn().Str("product_id", id).Msg("Dropping empty price history entry")
			delete(history, id)
		}
	}
	return history
}

// SaveHistory persists the price history
func (s *Store) SaveHistory(h History) error {
	if h == nil {
		h = History{}
	}
	if err := writeJSON(s.HistoryPath(), h); err != nil {
		return apperrors.NewStorage(s.site, "write price history", err)
	}
	return nil
}

// writeJSON pretty-prints v into path through a temp file and rename.
// Links keep their & unescaped.
func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
