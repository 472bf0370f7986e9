package egon

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

func TestElementFromData(t *testing.T) {
	e := ElementFromData(webmodule.XMLElement{ID: "5", Name: "Porch", Type: "light", Value: "on", Enabled: "true"})
	assert.Equal(t, Element{ID: "5", Name: "Porch", Type: "light", Enabled: true, Value: "on"}, e)

	assert.False(t, ElementFromData(webmodule.XMLElement{Enabled: "false"}).Enabled)
	assert.False(t, ElementFromData(webmodule.XMLElement{Enabled: "1"}).Enabled)
	assert.False(t, ElementFromData(webmodule.XMLElement{}).Enabled)
}

func TestGroupFromData(t *testing.T) {
	g := GroupFromData(
		webmodule.XMLGroup{ID: "10", Name: "Living", Elements: []webmodule.XMLElement{{ID: "99"}}},
		[]webmodule.XMLElementState{{ID: "1", Value: "on"}, {ID: "2", Value: "off"}},
	)
	assert.Equal(t, Group{ID: "10", Name: "Living", Elements: []string{"1", "2"}}, g)
}

func TestNewConfiguration_Duplicate(t *testing.T) {
	_, err := NewConfiguration([]Element{{ID: "1"}, {ID: "2"}, {ID: "1"}}, nil)
	require.ErrorIs(t, err, ErrDuplicateElement)
	assert.Contains(t, err.Error(), `"1"`)
}

func TestConfiguration_ReturnsCopies(t *testing.T) {
	groups := []Group{{ID: "10", Elements: []string{"1"}}}
	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, groups)
	require.NoError(t, err)

	groups[0].Elements[0] = "changed"
	assert.Equal(t, "1", cfg.Groups()[0].Elements[0], "construction copies groups")

	got := cfg.Groups()
	got[0].Elements[0] = "changed"
	assert.Equal(t, "1", cfg.Groups()[0].Elements[0])

	elements := cfg.Elements()
	elements[0].Value = "on"
	e, _ := cfg.Element("1")
	assert.Equal(t, "off", e.Value)
}

func TestConfiguration_ElementsKeepInventoryOrder(t *testing.T) {
	cfg, err := NewConfiguration([]Element{{ID: "9"}, {ID: "1"}, {ID: "5"}}, nil)
	require.NoError(t, err)

	var ids []string
	for _, e := range cfg.Elements() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"9", "1", "5"}, ids)
}

func TestConfiguration_ApplyWritesUnchangedValues(t *testing.T) {
	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}, {ID: "2", Value: "on"}}, nil)
	require.NoError(t, err)

	delta := cfg.apply([]webmodule.XMLElementState{{ID: "1", Value: "off"}, {ID: "2", Value: "off"}, {ID: "7", Value: "on"}})
	require.Len(t, delta, 1)
	assert.Equal(t, Change{Element: Element{ID: "2", Value: "on"}, Value: "off"}, delta[0])
	assert.Equal(t, 2, cfg.Len())
}

func TestConfiguration_ReadersDuringApply(t *testing.T) {
	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			value := "off"
			if i%2 == 0 {
				value = "on"
			}
			cfg.apply([]webmodule.XMLElementState{{ID: "1", Value: value}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			e, ok := cfg.Element("1")
			assert.True(t, ok)
			assert.Contains(t, []string{"on", "off"}, e.Value)
			_ = cfg.View()
		}
	}()
	wg.Wait()
}

func TestConfiguration_ViewJSON(t *testing.T) {
	cfg, err := NewConfiguration(
		[]Element{{ID: "1", Name: "Lamp", Type: "light", Enabled: true, Value: "on"}},
		[]Group{{ID: "10", Name: "Hall", Elements: []string{"1"}}},
	)
	require.NoError(t, err)

	raw, err := json.Marshal(cfg.View())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"elements": [{"id":"1","name":"Lamp","type":"light","enabled":true,"value":"on"}],
		"groups": [{"id":"10","name":"Hall","elements":["1"]}]
	}`, string(raw))
}

func TestChangeString(t *testing.T) {
	c := Change{Element: Element{ID: "4", Name: "Blind", Value: "up_stop"}, Value: "down_run"}
	assert.Equal(t, "Blind (4): up_stop -> down_run", c.String())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in    string
		want  Action
		known bool
	}{
		{"on", ActionOn, true},
		{" Stop ", ActionStop, true},
		{"DOWN", ActionDown, true},
		{"toggle", Action("TOGGLE"), false},
		{"", Action(""), false},
	}

	for _, tt := range tests {
		got, known := ParseAction(tt.in)
		assert.Equal(t, tt.want, got, "ParseAction(%q)", tt.in)
		assert.Equal(t, tt.known, known, "ParseAction(%q)", tt.in)
	}
}

func TestDescribeState(t *testing.T) {
	assert.Equal(t, "closing", DescribeState(StateDownRun))
	assert.Equal(t, "opened", DescribeState(StateUpStop))
	assert.Equal(t, "42", DescribeState("42"))
}

func TestFormatters(t *testing.T) {
	cfg, err := NewConfiguration(
		[]Element{
			{ID: "1", Name: "Kitchen", Type: "light", Enabled: true, Value: "on"},
			{ID: "2", Name: "Blind", Type: "blind", Enabled: false, Value: "down_stop"},
		},
		[]Group{{ID: "10", Name: "Ground floor", Elements: []string{"1", "8"}}},
	)
	require.NoError(t, err)

	assert.Equal(t, "2 elements in 1 groups", cfg.Summary())

	compact := cfg.FormatCompact()
	assert.Equal(t, 2, strings.Count(compact, "\n"))
	assert.Contains(t, compact, "closed (disabled)")

	detailed := cfg.FormatDetailed()
	assert.Contains(t, detailed, "=== Ground floor (group 10) ===")
	assert.Contains(t, detailed, "(unknown element)")
	assert.Contains(t, detailed, "=== Ungrouped ===")
	assert.Less(t, strings.Index(detailed, "Ground floor"), strings.Index(detailed, "Ungrouped"))

	assert.Equal(t, "(no changes)\n", FormatDelta(nil))
	assert.Equal(t, "Kitchen (1): off -> on\n", FormatDelta(StateDelta{{Element: Element{ID: "1", Name: "Kitchen", Value: "off"}, Value: "on"}}))
}
