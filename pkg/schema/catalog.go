package schema

import "sort"

// Catalog is an in-memory Provider. Entities keep insertion order; adding
// an entity whose name is already present replaces it in place.
//
// A Catalog is not safe for concurrent mutation. Build it, then share it
// read-only, or swap whole catalogs the way internal/provider does.
type Catalog struct {
	entities []*Entity
	index    map[string]int // folded name -> position
}

// NewCatalog creates a catalog holding entities.
func NewCatalog(entities ...*Entity) *Catalog {
	c := &Catalog{index: make(map[string]int, len(entities))}
	for _, e := range entities {
		c.Add(e)
	}
	return c
}

// Add inserts or replaces an entity.
func (c *Catalog) Add(e *Entity) {
	if e == nil {
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	key := FoldName(e.Name)
	if i, ok := c.index[key]; ok {
		c.entities[i] = e
		return
	}
	c.index[key] = len(c.entities)
	c.entities = append(c.entities, e)
}

// Entity returns the entity called name, compared case-insensitively.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[FoldName(name)]
	if !ok {
		return nil, false
	}
	return c.entities[i], true
}

// Entities implements Provider.
func (c *Catalog) Entities() []*Entity {
	if c == nil {
		return nil
	}
	return c.entities
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entities)
}

// Names returns the entity names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, c.Len())
	for _, e := range c.Entities() {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
