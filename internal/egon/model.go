package egon

import (
	"fmt"
	"sync"

	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

// Element is one controllable or observable point of the module
type Element struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	Value   string `json:"value"`
}

// ElementFromData converts a config.html element
func ElementFromData(e webmodule.XMLElement) Element {
	return Element{
		ID:      e.ID,
		Name:    e.Name,
		Type:    e.Type,
		Enabled: e.Enabled == "true",
		Value:   e.Value,
	}
}

// Group is a named collection of element ids. Elements holds the ids that
// reported a state for the group, not the group's config listing.
type Group struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
}

// GroupFromData builds a group from its config entry and its state fetch
func GroupFromData(g webmodule.XMLGroup, states []webmodule.XMLElementState) Group {
	ids := make([]string, len(states))
	for i, s := range states {
		ids[i] = s.ID
	}
	return Group{ID: g.ID, Name: g.Name, Elements: ids}
}

// Change is one entry of a StateDelta. Element is a copy taken before the
// poll overwrote it, so Element.Value is the previous value.
type Change struct {
	Element Element `json:"element"`
	Value   string  `json:"value"`
}

// String returns "name (id): previous -> current"
func (c Change) String() string {
	return fmt.Sprintf("%s (%s): %s -> %s", c.Element.Name, c.Element.ID, c.Element.Value, c.Value)
}

// StateDelta lists the elements whose value changed during one poll, in
// the order the module reported them
type StateDelta []Change

// Configuration is the element and group inventory of one module. The set
// of elements and the groups are fixed at construction; only element
// values change, and only through polling.
type Configuration struct {
	mu       sync.RWMutex
	elements map[string]*Element
	order    []string
	groups   []Group
}

// NewConfiguration indexes elements by id. A repeated id is an
// ErrDuplicateElement error.
func NewConfiguration(elements []Element, groups []Group) (*Configuration, error) {
	cfg := &Configuration{
		elements: make(map[string]*Element, len(elements)),
		order:    make([]string, 0, len(elements)),
		groups:   make([]Group, len(groups)),
	}

	for i := range elements {
		e := elements[i]
		if _, exists := cfg.elements[e.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, e.ID)
		}
		cfg.elements[e.ID] = &e
		cfg.order = append(cfg.order, e.ID)
	}

	for i, g := range groups {
		g.Elements = append([]string(nil), g.Elements...)
		cfg.groups[i] = g
	}

	return cfg, nil
}

// Len returns the number of elements
func (c *Configuration) Len() int {
	return len(c.order)
}

// Element returns a copy of the element with the given id
func (c *Configuration) Element(id string) (Element, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.elements[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// Elements returns copies of all elements in inventory order
func (c *Configuration) Elements() []Element {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Element, len(c.order))
	for i, id := range c.order {
		out[i] = *c.elements[id]
	}
	return out
}

// Groups returns a copy of the groups
func (c *Configuration) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		g.Elements = append([]string(nil), g.Elements...)
		out[i] = g
	}
	return out
}

// apply writes every known state into the configuration and returns the
// elements whose value differed. Unknown ids are ignored.
func (c *Configuration) apply(states []webmodule.XMLElementState) StateDelta {
	c.mu.Lock()
	defer c.mu.Unlock()

	var delta StateDelta
	for _, s := range states {
		e, ok := c.elements[s.ID]
		if !ok {
			continue
		}
		if e.Value != s.Value {
			delta = append(delta, Change{Element: *e, Value: s.Value})
		}
		e.Value = s.Value
	}
	return delta
}

// ConfigurationView is the JSON form of a Configuration
type ConfigurationView struct {
	Elements []Element `json:"elements"`
	Groups   []Group   `json:"groups"`
}

// View returns a consistent snapshot for serialization
func (c *Configuration) View() ConfigurationView {
	return ConfigurationView{Elements: c.Elements(), Groups: c.Groups()}
}
