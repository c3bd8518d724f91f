// Package world provides the static entity catalog: locations (rooms) and the
// interactables (objects) they own.
package world

import (
	"errors"
	"fmt"
	"sort"
)

// Default room footprint in metres.
const (
	DefaultWidth  = 35.0
	DefaultLength = 50.0
)

var (
	// ErrNoLocations is returned when a catalog has no locations at all.
	ErrNoLocations = errors.New("catalog has no locations")
	// ErrDuplicateLocation is returned when two locations share a name.
	ErrDuplicateLocation = errors.New("duplicate location name")
)

// Interactable is an object an actor can interact with.
type Interactable struct {
	Name string `json:"name"`
}

// Size is the physical footprint of a location. Carried, never used by logic.
type Size struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// Location is a room that owns zero or more interactables.
type Location struct {
	Name    string         `json:"name"`
	Objects []Interactable `json:"objects"`
	Size    Size           `json:"size"`
}

// HasObjects reports whether the location owns any interactables.
func (l *Location) HasObjects() bool {
	return len(l.Objects) > 0
}

// LocationSpec describes one location for catalog construction.
type LocationSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Objects []string `json:"objects" yaml:"objects"`
	Width   float64  `json:"width,omitempty" yaml:"width,omitempty"`
	Length  float64  `json:"length,omitempty" yaml:"length,omitempty"`
}

// Catalog holds every location of a run, in declaration order.
type Catalog struct {
	Locations []*Location `json:"locations"`
	index     map[string]*Location
}

// NewCatalog builds a catalog from ordered location specs.
// Location names must be unique; interactables are not deduplicated.
func NewCatalog(specs []LocationSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, ErrNoLocations
	}

	c := &Catalog{
		Locations: make([]*Location, 0, len(specs)),
		index:     make(map[string]*Location, len(specs)),
	}
	for _, spec := range specs {
		if _, dup := c.index[spec.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLocation, spec.Name)
		}

		size := Size{Width: spec.Width, Length: spec.Length}
		if size.Width <= 0 {
			size.Width = DefaultWidth
		}
		if size.Length <= 0 {
			size.Length = DefaultLength
		}

		objects := make([]Interactable, 0, len(spec.Objects))
		for _, name := range spec.Objects {
			objects = append(objects, Interactable{Name: name})
		}

		loc := &Location{Name: spec.Name, Objects: objects, Size: size}
		c.Locations = append(c.Locations, loc)
		c.index[spec.Name] = loc
	}
	return c, nil
}

// FromMapping builds a catalog from a location → object names mapping.
// Go maps are unordered, so locations are sorted by name.
func FromMapping(m map[string][]string) (*Catalog, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]LocationSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, LocationSpec{Name: name, Objects: m[name]})
	}
	return NewCatalog(specs)
}

// Get returns the location with the given name, or nil.
func (c *Catalog) Get(name string) *Location {
	return c.index[name]
}

// Len returns the number of locations.
func (c *Catalog) Len() int {
	return len(c.Locations)
}

// InteractableNames returns every interactable name, location by location,
// including duplicates.
func (c *Catalog) InteractableNames() []string {
	var names []string
	for _, loc := range c.Locations {
		for _, obj := range loc.Objects {
			names = append(names, obj.Name)
		}
	}
	return names
}

// DistinctInteractables returns the number of distinct interactable names.
func (c *Catalog) DistinctInteractables() int {
	seen := make(map[string]struct{})
	for _, name := range c.InteractableNames() {
		seen[name] = struct{}{}
	}
	return len(seen)
}

// String returns a summary of the catalog.
func (c *Catalog) String() string {
	return fmt.Sprintf("Catalog(locations=%d, interactables=%d)", c.Len(), c.DistinctInteractables())
}
