package egon

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the configuration
func (c *Configuration) Summary() string {
	return fmt.Sprintf("%d elements in %d groups", c.Len(), len(c.groups))
}

// FormatElement returns a single aligned line for one element
func FormatElement(e Element) string {
	state := DescribeState(e.Value)
	if !e.Enabled {
		state += " (disabled)"
	}
	return fmt.Sprintf("%-6s %-30s %-10s %s", e.ID, e.Name, e.Type, state)
}

// FormatCompact returns one line per element, in inventory order
func (c *Configuration) FormatCompact() string {
	var b strings.Builder
	for _, e := range c.Elements() {
		b.WriteString(FormatElement(e))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatDetailed lists every group with its members, followed by the
// elements that belong to no group
func (c *Configuration) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                  EGON MODULE CONFIGURATION                     ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	b.WriteString("\n")
	b.WriteString(c.Summary())
	b.WriteString("\n")

	grouped := make(map[string]bool)
	for _, g := range c.Groups() {
		b.WriteString(fmt.Sprintf("\n=== %s (group %s) ===\n", g.Name, g.ID))
		for _, id := range g.Elements {
			grouped[id] = true
			e, ok := c.Element(id)
			if !ok {
				b.WriteString(fmt.Sprintf("%-6s (unknown element)\n", id))
				continue
			}
			b.WriteString(FormatElement(e))
			b.WriteString("\n")
		}
	}

	var ungrouped []Element
	for _, e := range c.Elements() {
		if !grouped[e.ID] {
			ungrouped = append(ungrouped, e)
		}
	}
	if len(ungrouped) > 0 {
		b.WriteString("\n=== Ungrouped ===\n")
		for _, e := range ungrouped {
			b.WriteString(FormatElement(e))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// FormatDelta returns one line per change, or "(no changes)"
func FormatDelta(delta StateDelta) string {
	if len(delta) == 0 {
		return "(no changes)\n"
	}

	var b strings.Builder
	for _, change := range delta {
		b.WriteString(change.String())
		b.WriteString("\n")
	}
	return b.String()
}
