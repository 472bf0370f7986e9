package egon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimm98y/EgonAPI/internal/discovery"
)

const moduleToken = "device=77"

const mockConfig = `<?xml version="1.0" encoding="windows-1250"?>
<egon_data>
  <elements>
    <element id="1" name="Kitchen" type="light" value="off" enabled="true"/>
    <element id="2" name="Hall" type="light" value="off" enabled="true"/>
    <element id="3" name="Blind" type="blind" value="up_stop" enabled="false"/>
  </elements>
  <groups>
    <group id="10" name="Ground floor" enabled="true" default="true">
      <elements><element id="1" name="Kitchen" type="light" value="off" enabled="true"/></elements>
    </group>
    <group id="20" name="Attic" enabled="true" default="false"/>
  </groups>
</egon_data>`

const duplicateConfig = `<egon_data><elements>
<element id="1" name="A" type="light" value="off" enabled="true"/>
<element id="1" name="B" type="light" value="off" enabled="true"/>
</elements></egon_data>`

const emptyStates = `<egon_data><element_states></element_states></egon_data>`

func states(pairs ...string) string {
	var b strings.Builder
	b.WriteString("<egon_data><element_states>")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(`<element_state id="` + pairs[i] + `" value="` + pairs[i+1] + `"/>`)
	}
	b.WriteString("</element_states></egon_data>")
	return b.String()
}

// fakeModule serves the web module endpoints from canned bodies and records
// every request path in order
type fakeModule struct {
	mu sync.Mutex

	rejectAuth   bool
	configBodies []string
	groupBodies  map[string][]string
	stateBody    string
	stateStatus  int
	stateDelay   time.Duration
	refreshBody  string
	actionBody   string

	configHits int
	groupHits  map[string]int
	requests   []string
	queries    []string
}

func newFakeModule() *fakeModule {
	return &fakeModule{
		configBodies: []string{mockConfig},
		groupBodies: map[string][]string{
			"10": {states("1", "off", "2", "off")},
			"20": {states("3", "up_stop")},
		},
		stateBody:   states("1", "off", "2", "off", "3", "up_stop"),
		refreshBody: "OK",
		actionBody:  "OK",
		groupHits:   make(map[string]int),
	}
}

// next returns the body for the n-th hit, repeating the last one
func next(bodies []string, n int) string {
	if len(bodies) == 0 {
		return ""
	}
	if n >= len(bodies) {
		return bodies[len(bodies)-1]
	}
	return bodies[n]
}

func (m *fakeModule) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.URL.Path)
	m.queries = append(m.queries, r.URL.RawQuery)

	var body string
	var delay time.Duration
	status := http.StatusOK

	switch r.URL.Path {
	case "/authorize.html":
		if !m.rejectAuth {
			body = moduleToken
		}
	case "/config.html":
		body = next(m.configBodies, m.configHits)
		m.configHits++
	case "/state.html":
		if group := r.URL.Query().Get("group"); group != "" {
			body = next(m.groupBodies[group], m.groupHits[group])
			m.groupHits[group]++
		} else {
			body = m.stateBody
			delay = m.stateDelay
			if m.stateStatus != 0 {
				status = m.stateStatus
			}
		}
	case "/refresh.html":
		body = m.refreshBody
	case "/action.html":
		body = m.actionBody
	default:
		status = http.StatusNotFound
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (m *fakeModule) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *fakeModule) query(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[i]
}

func (m *fakeModule) hits(group string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group == "" {
		return m.configHits
	}
	return m.groupHits[group]
}

func (m *fakeModule) count(path string) int {
	n := 0
	for _, p := range m.paths() {
		if p == path {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, m *fakeModule, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(m)
	t.Cleanup(server.Close)

	desc, err := discovery.NewDescriptor("127.0.0.1")
	require.NoError(t, err)

	opts = append([]Option{WithBaseURL(server.URL), WithRetry(time.Millisecond, DefaultRetryAttempts)}, opts...)
	return NewClient(desc, "admin", "secret", opts...)
}

func TestGetConfiguration(t *testing.T) {
	m := newFakeModule()
	client := newTestClient(t, m)

	cfg, err := client.GetConfiguration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Len())
	blind, ok := cfg.Element("3")
	require.True(t, ok)
	assert.Equal(t, Element{ID: "3", Name: "Blind", Type: "blind", Enabled: false, Value: "up_stop"}, blind)

	groups := cfg.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Ground floor", groups[0].Name)
	// Membership comes from the group's state fetch, not its config listing
	assert.Equal(t, []string{"1", "2"}, groups[0].Elements)
	assert.Equal(t, []string{"3"}, groups[1].Elements)

	for i := 1; i < len(m.paths()); i++ {
		q := m.query(i)
		assert.True(t, strings.HasPrefix(q, moduleToken), "query %q must carry the token", q)
	}
}

func TestGetConfiguration_SucceedsOnThirdAttempt(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{"", "", mockConfig}
	client := newTestClient(t, m)

	cfg, err := client.GetConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Len())
	assert.Equal(t, 3, m.hits(""))
	assert.Equal(t, 1, m.count("/authorize.html"), "retries reuse the session")
}

func TestGetConfiguration_FailsAfterTenAttempts(t *testing.T) {
	m := newFakeModule()
	m.configBodies = make([]string, 11)
	client := newTestClient(t, m)

	cfg, err := client.GetConfiguration(context.Background())
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrConfigurationUnavailable)
	assert.Equal(t, 10, m.hits(""))
}

func TestGetConfiguration_RetryBudgetIsConfigurable(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{"<egon_data><elements>"}
	client := newTestClient(t, m, WithRetry(time.Millisecond, 3))

	_, err := client.GetConfiguration(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationUnavailable)
	assert.Equal(t, 3, m.hits(""))
}

func TestGetConfiguration_DuplicateElementIsFatal(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{duplicateConfig}
	client := newTestClient(t, m)

	_, err := client.GetConfiguration(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateElement)
	assert.NotErrorIs(t, err, ErrConfigurationUnavailable)
	assert.Equal(t, 1, m.hits(""), "integrity errors are not retried")
}

func TestGetConfiguration_DropsGroupWithoutStates(t *testing.T) {
	m := newFakeModule()
	m.groupBodies["20"] = []string{emptyStates}
	client := newTestClient(t, m)

	cfg, err := client.GetConfiguration(context.Background())
	require.NoError(t, err)

	groups := cfg.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "10", groups[0].ID)
	assert.Equal(t, DefaultRetryAttempts, m.hits("20"))
	assert.Equal(t, 3, cfg.Len(), "elements of a dropped group are kept")
}

func TestGetConfiguration_GroupRecoversAfterRetry(t *testing.T) {
	m := newFakeModule()
	m.groupBodies["20"] = []string{emptyStates, "", states("3", "down_stop")}
	client := newTestClient(t, m)

	cfg, err := client.GetConfiguration(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.Groups(), 2)
	assert.Equal(t, 3, m.hits("20"))
}

func TestGetConfiguration_Unauthorized(t *testing.T) {
	m := newFakeModule()
	m.rejectAuth = true
	client := newTestClient(t, m)

	_, err := client.GetConfiguration(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationUnavailable)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, m.hits(""))
}

func TestGetConfiguration_ContextCancelled(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{""}
	client := newTestClient(t, m, WithRetry(time.Hour, DefaultRetryAttempts))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.GetConfiguration(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGetConfiguration_SingleAttemptBudget(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{""}
	client := newTestClient(t, m, WithRetry(time.Millisecond, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.GetConfiguration(ctx)
	assert.ErrorIs(t, err, ErrConfigurationUnavailable)
	assert.NoError(t, ctx.Err())
	assert.Equal(t, 1, m.hits(""))
}

func TestGetConfiguration_WaitsForDeadline(t *testing.T) {
	m := newFakeModule()
	m.configBodies = []string{"", "", mockConfig}
	client := newTestClient(t, m, WithRetry(time.Second, DefaultRetryAttempts))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.GetConfiguration(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "the retry gives up only once the context is done")
	assert.Equal(t, 1, m.hits(""))
}

func TestGetCurrentState_Diff(t *testing.T) {
	m := newFakeModule()
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{{ID: "A", Name: "Lamp", Type: "light", Enabled: true, Value: "off"}}, nil)
	require.NoError(t, err)

	m.stateBody = states("A", "off", "B", "on")
	delta, err := client.GetCurrentState(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, delta)
	a, _ := cfg.Element("A")
	assert.Equal(t, "off", a.Value)
	_, known := cfg.Element("B")
	assert.False(t, known, "unknown ids are not added")

	m.stateBody = states("A", "on")
	delta, err = client.GetCurrentState(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, delta, 1)
	assert.Equal(t, "A", delta[0].Element.ID)
	assert.Equal(t, "off", delta[0].Element.Value, "delta records the value before the update")
	assert.Equal(t, "on", delta[0].Value)

	a, _ = cfg.Element("A")
	assert.Equal(t, "on", a.Value)
}

func TestGetCurrentState_PreservesReceivedOrder(t *testing.T) {
	m := newFakeModule()
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{
		{ID: "1", Value: "off"},
		{ID: "2", Value: "off"},
		{ID: "3", Value: "up_stop"},
	}, nil)
	require.NoError(t, err)

	m.stateBody = states("3", "down_run", "2", "off", "1", "on")
	delta, err := client.GetCurrentState(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, delta, 2)
	assert.Equal(t, "3", delta[0].Element.ID)
	assert.Equal(t, "1", delta[1].Element.ID)
}

func TestGetCurrentState_Sequence(t *testing.T) {
	m := newFakeModule()
	m.refreshBody = "ERROR"
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, nil)
	require.NoError(t, err)

	m.stateBody = states("1", "on")
	delta, err := client.GetCurrentState(context.Background(), cfg)
	require.NoError(t, err, "a failed refresh is ignored")
	assert.Len(t, delta, 1)

	assert.Equal(t, []string{"/authorize.html", "/refresh.html", "/state.html"}, m.paths())
	assert.Equal(t, moduleToken, m.query(2))
}

func TestGetCurrentState_Unauthorized(t *testing.T) {
	m := newFakeModule()
	m.rejectAuth = true
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, nil)
	require.NoError(t, err)

	delta, err := client.GetCurrentState(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, delta)
	assert.Equal(t, 0, m.count("/state.html"))
}

func TestGetCurrentState_FetchFailure(t *testing.T) {
	m := newFakeModule()
	m.stateStatus = http.StatusInternalServerError
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, nil)
	require.NoError(t, err)

	_, err = client.GetCurrentState(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrStateUnavailable)
	assert.Equal(t, 1, m.count("/state.html"), "polls are not retried")
}

func TestGetCurrentState_ConcurrentPollsDoNotInterleave(t *testing.T) {
	m := newFakeModule()
	m.stateDelay = 20 * time.Millisecond
	m.stateBody = states("1", "on")
	client := newTestClient(t, m)

	cfg, err := NewConfiguration([]Element{{ID: "1", Value: "off"}}, nil)
	require.NoError(t, err)

	const pollers = 4
	deltas := make([]StateDelta, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := client.GetCurrentState(context.Background(), cfg)
			assert.NoError(t, err)
			deltas[i] = d
		}(i)
	}
	wg.Wait()

	paths := m.paths()
	require.Len(t, paths, pollers*3)
	for i := 0; i < len(paths); i += 3 {
		assert.Equal(t, []string{"/authorize.html", "/refresh.html", "/state.html"}, paths[i:i+3])
	}

	changed := 0
	for _, d := range deltas {
		changed += len(d)
	}
	assert.Equal(t, 1, changed, "only the first complete poll observes the change")
}

func TestExecuteAction(t *testing.T) {
	m := newFakeModule()
	client := newTestClient(t, m)

	assert.True(t, client.ExecuteAction(context.Background(), "3", ActionDown))
	assert.Equal(t, []string{"/authorize.html", "/action.html"}, m.paths())
	assert.Equal(t, "action=DOWN&"+moduleToken+"&id=3", m.query(1))

	m.actionBody = "ok"
	assert.False(t, client.ExecuteAction(context.Background(), "3", ActionDown))
}

func TestExecuteAction_Unauthorized(t *testing.T) {
	m := newFakeModule()
	m.rejectAuth = true
	client := newTestClient(t, m)

	assert.False(t, client.ExecuteAction(context.Background(), "1", ActionOn))
	assert.Equal(t, 0, m.count("/action.html"))
}

func TestInitialize_PollsOnce(t *testing.T) {
	m := newFakeModule()
	m.stateBody = states("1", "on", "3", "down_stop")
	client := newTestClient(t, m)

	cfg, err := client.Initialize(context.Background())
	require.NoError(t, err)

	kitchen, _ := cfg.Element("1")
	blind, _ := cfg.Element("3")
	assert.Equal(t, "on", kitchen.Value)
	assert.Equal(t, "down_stop", blind.Value)
}

func TestInitialize_FailedPollKeepsConfiguration(t *testing.T) {
	m := newFakeModule()
	m.stateStatus = http.StatusInternalServerError
	client := newTestClient(t, m)

	cfg, err := client.Initialize(context.Background())
	require.NoError(t, err)
	kitchen, _ := cfg.Element("1")
	assert.Equal(t, "off", kitchen.Value)
}

func TestAuthorize(t *testing.T) {
	m := newFakeModule()
	client := newTestClient(t, m)
	assert.True(t, client.Authorize(context.Background()))
	assert.Equal(t, moduleToken, client.sessions.last().Token)

	m.rejectAuth = true
	assert.False(t, client.Authorize(context.Background()))
	assert.Equal(t, moduleToken, client.sessions.last().Token, "a failed login keeps the last session")
}

func TestAuthorize_Unreachable(t *testing.T) {
	desc, err := discovery.NewDescriptor("127.0.0.1")
	require.NoError(t, err)

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(desc, "admin", "secret", WithBaseURL(url))
	assert.False(t, client.Authorize(context.Background()))
}

func TestNewClient_DerivesBaseURL(t *testing.T) {
	desc, err := discovery.NewDescriptor("192.168.1.20")
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.20", NewClient(desc, "u", "p").web.BaseURL)
	assert.Equal(t, "https://192.168.1.20:4536", NewClient(desc, "u", "p", WithHTTPS()).web.BaseURL)

	hc := &http.Client{Timeout: time.Second}
	assert.Same(t, hc, NewClient(desc, "u", "p", WithHTTPClient(hc)).web.HTTPClient)
	assert.Same(t, desc, NewClient(desc, "u", "p").Descriptor())
}
