package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/jimm98y/EgonAPI/internal/egon"
)

// Labels maps element ids to user-chosen names that replace the module's
type Labels map[string]string

func (l Labels) name(e egon.Element) string {
	if label, ok := l[e.ID]; ok && label != "" {
		return label
	}
	return e.Name
}

// RenderElementRow renders one element as an aligned, colored row.
// Recently changed elements carry a marker.
func RenderElementRow(e egon.Element, labels Labels, changed bool) string {
	marker := "  "
	if changed {
		marker = ChangeMarkerStyle.Render(ChangeMarker) + " "
	}

	state := egon.DescribeState(e.Value)
	if !e.Enabled {
		state += " (disabled)"
	}

	return marker +
		ElementIDStyle.Render(e.ID) +
		ElementNameStyle.Render(truncate(labels.name(e), 27)) +
		ElementTypeStyle.Render(e.Type) +
		StateStyle(e.Value, e.Enabled).Render(state)
}

// RenderConfiguration renders every group with its members, then the
// elements that belong to no group. changed marks element ids to highlight.
func RenderConfiguration(cfg *egon.Configuration, labels Labels, changed map[string]bool) string {
	var b strings.Builder

	grouped := make(map[string]bool)
	for _, g := range cfg.Groups() {
		b.WriteString(GroupTitleStyle.Render(g.Name))
		b.WriteString("\n")
		for _, id := range g.Elements {
			e, ok := cfg.Element(id)
			if !ok {
				continue
			}
			grouped[id] = true
			b.WriteString(RenderElementRow(e, labels, changed[id]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	var rest []egon.Element
	for _, e := range cfg.Elements() {
		if !grouped[e.ID] {
			rest = append(rest, e)
		}
	}
	if len(rest) > 0 {
		if len(grouped) > 0 {
			b.WriteString(GroupTitleStyle.Render("Ungrouped"))
			b.WriteString("\n")
		}
		for _, e := range rest {
			b.WriteString(RenderElementRow(e, labels, changed[e.ID]))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderChange renders one change log line
func RenderChange(change egon.Change, labels Labels, at time.Time) string {
	return fmt.Sprintf("%s %s %s → %s",
		ChangeTimeStyle.Render(at.Format("15:04:05")),
		labels.name(change.Element),
		StateStyle(change.Element.Value, change.Element.Enabled).Render(egon.DescribeState(change.Element.Value)),
		StateStyle(change.Value, change.Element.Enabled).Render(egon.DescribeState(change.Value)),
	)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
