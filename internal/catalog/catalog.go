// Package catalog loads and serves the reference catalog of supported laboratory tests.
//
// A Catalog is validated once when it is built and is immutable afterwards, so a single
// instance can be shared by any number of concurrent pipeline runs without locking.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/textnorm"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable table of catalog entries keyed by canonical name.
type Catalog struct {
	entries []domain.CatalogEntry
	byName  map[string]int
	byAlias map[string]int
}

var _ domain.ReferenceCatalog = (*Catalog)(nil)

// document is the on-disk catalog layout. JSON documents parse through the same path.
type document struct {
	Tests map[string]entryDoc `yaml:"tests"`
}

type entryDoc struct {
	Aliases        []string        `yaml:"aliases"`
	Unit           string          `yaml:"unit"`
	ReferenceRange *domain.Range   `yaml:"reference_range"`
	Category       string          `yaml:"category"`
	Explanation    string          `yaml:"explanation"`
	Causes         domain.Guidance `yaml:"causes"`
	Advice         domain.Advice   `yaml:"advice"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a YAML or JSON catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	cat, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return cat, nil
}

// Open returns the catalog at path, or the embedded catalog when path is empty.
func Open(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

// Load decodes a catalog document and validates every entry.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding catalog: document is empty")
		}
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	var errs []error
	entries := make([]domain.CatalogEntry, 0, len(doc.Tests))
	for name, e := range doc.Tests {
		if e.ReferenceRange == nil {
			errs = append(errs, domain.NewCatalogError(name, "reference range is missing"))
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			CanonicalName:  name,
			Aliases:        e.Aliases,
			Unit:           e.Unit,
			ReferenceRange: *e.ReferenceRange,
			Category:       e.Category,
			Explanation:    e.Explanation,
			Causes:         e.Causes,
			Advice:         e.Advice,
		})
	}
	if len(errs) > 0 {
		sortCatalogErrors(errs)
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return New(entries)
}

// New validates entries and builds a catalog from them. Entries with an empty name,
// an inverted or non-finite range, or an alias already owned by another entry are rejected;
// every problem found is reported in the returned error.
func New(entries []domain.CatalogEntry) (*Catalog, error) {
	sorted := make([]domain.CatalogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CanonicalName < sorted[j].CanonicalName
	})

	c := &Catalog{
		entries: make([]domain.CatalogEntry, 0, len(sorted)),
		byName:  make(map[string]int, len(sorted)),
		byAlias: make(map[string]int),
	}

	var errs []error
	for _, e := range sorted {
		e.CanonicalName = strings.TrimSpace(e.CanonicalName)
		key := textnorm.Fold(e.CanonicalName)
		if key == "" {
			errs = append(errs, domain.NewCatalogError(e.CanonicalName, "canonical name is empty"))
			continue
		}
		if reason := checkRange(e.ReferenceRange); reason != "" {
			errs = append(errs, domain.NewCatalogError(e.CanonicalName, reason))
			continue
		}
		if _, dup := c.byName[key]; dup {
			errs = append(errs, domain.NewCatalogError(e.CanonicalName, "duplicate canonical name"))
			continue
		}
		if owner, taken := c.byAlias[key]; taken {
			errs = append(errs, domain.NewCatalogError(e.CanonicalName,
				fmt.Sprintf("canonical name is already an alias of %q", c.entries[owner].CanonicalName)))
			continue
		}

		idx := len(c.entries)
		aliases := make([]string, 0, len(e.Aliases))
		seen := map[string]bool{key: true}
		for _, alias := range e.Aliases {
			ak := textnorm.Fold(alias)
			if ak == "" {
				errs = append(errs, domain.NewCatalogError(e.CanonicalName, "alias is empty"))
				continue
			}
			if seen[ak] {
				continue
			}
			seen[ak] = true
			if owner, taken := c.byAlias[ak]; taken {
				errs = append(errs, domain.NewCatalogError(e.CanonicalName,
					fmt.Sprintf("alias %q is already claimed by %q", alias, c.entries[owner].CanonicalName)))
				continue
			}
			if owner, taken := c.byName[ak]; taken {
				errs = append(errs, domain.NewCatalogError(e.CanonicalName,
					fmt.Sprintf("alias %q collides with canonical name %q", alias, c.entries[owner].CanonicalName)))
				continue
			}
			c.byAlias[ak] = idx
			aliases = append(aliases, strings.TrimSpace(alias))
		}
		e.Aliases = aliases
		e.Causes.Low = slices.Clone(e.Causes.Low)
		e.Causes.High = slices.Clone(e.Causes.High)

		c.byName[key] = idx
		c.entries = append(c.entries, e)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("invalid catalog: no entries")
	}
	return c, nil
}

func checkRange(r domain.Range) string {
	if math.IsNaN(r.Low) || math.IsNaN(r.High) || math.IsInf(r.Low, 0) || math.IsInf(r.High, 0) {
		return "reference range bounds must be finite numbers"
	}
	if r.Low > r.High {
		return fmt.Sprintf("reference range low %g exceeds high %g", r.Low, r.High)
	}
	return ""
}

func sortCatalogErrors(errs []error) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Error() < errs[j].Error()
	})
}

// Lookup finds an entry by canonical name, ignoring case and spacing.
func (c *Catalog) Lookup(canonicalName string) (domain.CatalogEntry, bool) {
	idx, ok := c.byName[textnorm.Fold(canonicalName)]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return c.entry(idx), true
}

// LookupAlias finds the entry owning alias, ignoring case and spacing.
func (c *Catalog) LookupAlias(alias string) (domain.CatalogEntry, bool) {
	idx, ok := c.byAlias[textnorm.Fold(alias)]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return c.entry(idx), true
}

// Entries returns a copy of every entry ordered by canonical name.
func (c *Catalog) Entries() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, len(c.entries))
	for i := range c.entries {
		out[i] = c.entry(i)
	}
	return out
}

// Names returns the canonical names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.CanonicalName
	}
	return names
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// entry returns a copy whose slices do not alias the catalog's own storage.
func (c *Catalog) entry(idx int) domain.CatalogEntry {
	e := c.entries[idx]
	e.Aliases = slices.Clone(e.Aliases)
	e.Causes.Low = slices.Clone(e.Causes.Low)
	e.Causes.High = slices.Clone(e.Causes.High)
	return e
}
