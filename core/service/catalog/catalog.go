// Package catalog provides the request-type catalog: static reference data
// mapping a category name to its routing team, SLA and reply template.
package catalog

import (
	"fmt"
	"strings"

	"officeflow/core/domain"

	"github.com/google/uuid"
)

// Catalog is an immutable snapshot of the active request types.
type Catalog struct {
	types  []domain.RequestType
	byName map[string]*domain.RequestType
	byID   map[uuid.UUID]*domain.RequestType
}

// New builds a catalog. Later duplicates of a name are ignored.
func New(types []domain.RequestType) *Catalog {
	c := &Catalog{
		types:  make([]domain.RequestType, 0, len(types)),
		byName: make(map[string]*domain.RequestType, len(types)),
		byID:   make(map[uuid.UUID]*domain.RequestType, len(types)),
	}
	for _, rt := range types {
		if _, dup := c.byName[rt.Name]; dup {
			continue
		}
		c.types = append(c.types, rt)
	}
	for i := range c.types {
		rt := &c.types[i]
		c.byName[rt.Name] = rt
		if rt.ID != uuid.Nil {
			c.byID[rt.ID] = rt
		}
	}
	return c
}

// Match looks a request type up by exact, case-sensitive name.
func (c *Catalog) Match(name string) (*domain.RequestType, bool) {
	if c == nil {
		return nil, false
	}
	rt, ok := c.byName[name]
	return rt, ok
}

// ByID looks a request type up by primary key.
func (c *Catalog) ByID(id uuid.UUID) (*domain.RequestType, bool) {
	if c == nil {
		return nil, false
	}
	rt, ok := c.byID[id]
	return rt, ok
}

// Types returns the catalog entries in catalog order.
func (c *Catalog) Types() []domain.RequestType {
	if c == nil {
		return nil
	}
	return c.types
}

// Names returns the request type names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Types()))
	for _, rt := range c.Types() {
		names = append(names, rt.Name)
	}
	return names
}

// PromptSummary renders one line per request type for the classifier prompt.
func (c *Catalog) PromptSummary() string {
	var sb strings.Builder
	for _, rt := range c.Types() {
		fmt.Fprintf(&sb, "- %s (%s): keywords: %s\n", rt.Name, rt.Category, strings.Join(rt.Keywords, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
