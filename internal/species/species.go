// Package species holds the static species reference data: which species
// exist and which evolutionary family each one belongs to. Family
// membership is what the blocklist and dupes rules key on.
package species

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/soullink-tracker/server/internal/domain"
)

const (
	// nameCacheSize bounds the normalized-name lookup cache.
	nameCacheSize = 512
)

type dataFile struct {
	Families []domain.Family  `json:"families"`
	Species  []domain.Species `json:"species"`
}

// Registry is the immutable species/family lookup table. It is loaded
// once at startup and safe for concurrent use.
type Registry struct {
	species  map[int]domain.Species
	families map[int]domain.Family
	byFamily map[int][]int

	titler    cases.Caser
	nameCache *expirable.LRU[string, int]
}

// Load reads the species data file and builds the registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read species data: %w", err)
	}
	return Parse(data)
}

// Parse builds the registry from raw JSON data.
func Parse(data []byte) (*Registry, error) {
	var df dataFile
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse species data: %w", err)
	}
	if len(df.Species) == 0 {
		return nil, fmt.Errorf("species data is empty")
	}

	r := &Registry{
		species:   make(map[int]domain.Species, len(df.Species)),
		families:  make(map[int]domain.Family, len(df.Families)),
		byFamily:  make(map[int][]int),
		titler:    cases.Title(language.English),
		nameCache: expirable.NewLRU[string, int](nameCacheSize, nil, 0),
	}

	for _, f := range df.Families {
		r.families[f.ID] = f
	}
	for _, sp := range df.Species {
		if _, ok := r.families[sp.FamilyID]; !ok {
			return nil, fmt.Errorf("species %d references unknown family %d", sp.ID, sp.FamilyID)
		}
		if _, dup := r.species[sp.ID]; dup {
			return nil, fmt.Errorf("duplicate species id %d", sp.ID)
		}
		r.species[sp.ID] = sp
		r.byFamily[sp.FamilyID] = append(r.byFamily[sp.FamilyID], sp.ID)
	}
	for _, ids := range r.byFamily {
		sort.Ints(ids)
	}

	return r, nil
}

// Get returns the species, or domain.ErrSpeciesNotFound.
func (r *Registry) Get(speciesID int) (domain.Species, error) {
	sp, ok := r.species[speciesID]
	if !ok {
		return domain.Species{}, fmt.Errorf("%w: id %d", domain.ErrSpeciesNotFound, speciesID)
	}
	return sp, nil
}

// FamilyFor returns the evolutionary family id for a species.
func (r *Registry) FamilyFor(speciesID int) (int, error) {
	sp, err := r.Get(speciesID)
	if err != nil {
		return 0, err
	}
	return sp.FamilyID, nil
}

// Family returns the family, or domain.ErrSpeciesNotFound.
func (r *Registry) Family(familyID int) (domain.Family, error) {
	f, ok := r.families[familyID]
	if !ok {
		return domain.Family{}, fmt.Errorf("%w: family %d", domain.ErrSpeciesNotFound, familyID)
	}
	return f, nil
}

// FamilyMembers returns the species ids in a family, ascending.
func (r *Registry) FamilyMembers(familyID int) []int {
	return r.byFamily[familyID]
}

// ByName resolves a species by case-insensitive name.
func (r *Registry) ByName(name string) (domain.Species, error) {
	key := normalizeName(name)
	if id, ok := r.nameCache.Get(key); ok {
		return r.species[id], nil
	}
	for id, sp := range r.species {
		if normalizeName(sp.Name) == key {
			r.nameCache.Add(key, id)
			return sp, nil
		}
	}
	return domain.Species{}, fmt.Errorf("%w: %q", domain.ErrSpeciesNotFound, name)
}

// DisplayName returns the title-cased species name for client output.
func (r *Registry) DisplayName(speciesID int) string {
	sp, ok := r.species[speciesID]
	if !ok {
		return ""
	}
	return r.titler.String(sp.Name)
}

// Count returns the number of known species.
func (r *Registry) Count() int {
	return len(r.species)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
