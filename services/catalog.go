// services/catalog.go - Static achievement catalog
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"unimap/models"
)

// Catalog is the immutable, ordered collection of achievement definitions.
// It is built once at startup and only read afterwards.
type Catalog struct {
	defs []models.AchievementDefinition
	byID map[string]*models.AchievementDefinition
	root string
}

// NewCatalog validates the definitions and builds the lookup index.
func NewCatalog(defs []models.AchievementDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	c := &Catalog{
		defs: defs,
		byID: make(map[string]*models.AchievementDefinition, len(defs)),
	}

	for i := range defs {
		def := &defs[i]
		if def.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement id %q", def.ID)
		}
		if !models.ValidCategory(def.Category) {
			return nil, fmt.Errorf("achievement %q has unknown category %q", def.ID, def.Category)
		}
		if !models.ValidKind(def.Kind) {
			return nil, fmt.Errorf("achievement %q has unknown kind %q", def.ID, def.Kind)
		}
		if def.XP < 0 {
			return nil, fmt.Errorf("achievement %q has negative xp", def.ID)
		}
		if def.RequiredCodeCount < 0 {
			return nil, fmt.Errorf("achievement %q has negative required code count", def.ID)
		}
		if def.Kind == models.KindRoot {
			if c.root != "" {
				return nil, fmt.Errorf("catalog has more than one root (%q and %q)", c.root, def.ID)
			}
			c.root = def.ID
		}
		c.byID[def.ID] = def
	}

	if c.root == "" {
		return nil, fmt.Errorf("catalog has no root achievement")
	}

	// Parent references are informational lineage only, but they must at
	// least resolve.
	for _, def := range defs {
		if def.ParentID == "" {
			continue
		}
		if _, ok := c.byID[def.ParentID]; !ok {
			return nil, fmt.Errorf("achievement %q references unknown parent %q", def.ID, def.ParentID)
		}
	}

	return c, nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (*models.AchievementDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []models.AchievementDefinition {
	return c.defs
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// RootID returns the id of the root achievement every new Progress starts with.
func (c *Catalog) RootID() string {
	return c.root
}

// InCategory returns the definitions belonging to cat, in catalog order.
func (c *Catalog) InCategory(cat models.Category) []models.AchievementDefinition {
	var out []models.AchievementDefinition
	for _, def := range c.defs {
		if def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// LoadCatalogFile reads achievement definitions from a JSON file.
func LoadCatalogFile(path string) ([]models.AchievementDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var defs []models.AchievementDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return defs, nil
}

var catalog *Catalog

// InitCatalog loads the catalog, preferring CATALOG_FILE over the built-in
// campus map.
func InitCatalog() {
	defs := defaultCatalog()
	if path := os.Getenv("CATALOG_FILE"); path != "" {
		loaded, err := LoadCatalogFile(path)
		if err != nil {
			log.Fatalf("Failed to load catalog from %s: %v", path, err)
		}
		defs = loaded
		log.Printf("Loaded %d achievements from %s", len(defs), path)
	}

	c, err := NewCatalog(defs)
	if err != nil {
		log.Fatalf("Invalid achievement catalog: %v", err)
	}
	catalog = c
	log.Printf("✅ Achievement catalog ready (%d achievements, root %q)", c.Len(), c.RootID())
}

// GetCatalog returns the initialized catalog.
func GetCatalog() *Catalog {
	if catalog == nil {
		log.Fatal("Catalog not initialized. Call InitCatalog() first.")
	}
	return catalog
}
