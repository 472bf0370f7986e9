package webmodule

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/version"
)

const (
	// HTTPSPort is the fixed port of the module's secured interface
	HTTPSPort = 4536

	// RejectedToken is what authorize.html returns for bad credentials
	RejectedToken = "device=0"

	// ResponseOK is the body of a successful refresh or action
	ResponseOK = "OK"

	maxBodySize = 4 << 20
)

// Client performs single request/response exchanges with one web module.
// It keeps no session state; the token is passed to every call.
type Client struct {
	// BaseURL is the module root (e.g. "http://192.168.1.20")
	BaseURL string

	// HTTPClient is the pooled client used for every request. Its zero
	// Timeout leaves timeouts to the transport defaults.
	HTTPClient *http.Client
}

// BaseURL returns the module root for ip. The secured variant uses HTTPS on
// the fixed alternate port; plain HTTP uses the implicit port.
func BaseURL(ip string, https bool) string {
	if https {
		return "https://" + net.JoinHostPort(ip, strconv.Itoa(HTTPSPort))
	}
	if strings.Contains(ip, ":") {
		return "http://[" + ip + "]"
	}
	return "http://" + ip
}

// NewClient creates a client for the module at ip
func NewClient(ip string, https bool) *Client {
	return NewClientWithURL(BaseURL(ip, https))
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// Login exchanges credentials for a session token. An empty body or the
// "device=0" sentinel is an ErrTypeAuth error; transport failures are
// classified network errors.
func (c *Client) Login(ctx context.Context, user, password string) (string, error) {
	query := url.Values{}
	query.Set("password", password)
	query.Set("user", user)

	body, err := c.getText(ctx, "/authorize.html?"+query.Encode())
	if err != nil {
		return "", err
	}

	if body == "" || body == RejectedToken {
		return "", NewAuthError("module rejected credentials")
	}
	return body, nil
}

// Authorize is Login folded into a boolean: bad credentials and an
// unreachable module are both reported as false.
func (c *Client) Authorize(ctx context.Context, user, password string) (string, bool) {
	token, err := c.Login(ctx, user, password)
	if err != nil {
		return "", false
	}
	return token, true
}

// Configuration fetches the element and group inventory
func (c *Client) Configuration(ctx context.Context, token string) (*Data, error) {
	return c.getData(ctx, "/config.html?"+token)
}

// State fetches element states, limited to one group when groupID is set
func (c *Client) State(ctx context.Context, token, groupID string) (*Data, error) {
	path := "/state.html?" + token
	if groupID != "" {
		path += "&group=" + url.QueryEscape(groupID)
	}
	return c.getData(ctx, path)
}

// Refresh keeps the session alive. It reports whether the module
// answered exactly "OK".
func (c *Client) Refresh(ctx context.Context, token string) bool {
	body, err := c.getText(ctx, "/refresh.html?"+token)
	return err == nil && body == ResponseOK
}

// ExecuteAction sends one command to an element. The action is passed
// through unvalidated; the module decides what it accepts. Success is a
// body of exactly "OK".
func (c *Client) ExecuteAction(ctx context.Context, token, elementID, action string) bool {
	path := fmt.Sprintf("/action.html?action=%s&%s&id=%s",
		url.QueryEscape(action), token, url.QueryEscape(elementID))

	body, err := c.getText(ctx, path)
	return err == nil && body == ResponseOK
}

func (c *Client) getData(ctx context.Context, path string) (*Data, error) {
	body, err := c.getText(ctx, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, NewEmptyError("module returned an empty document")
	}

	data, err := ParseData(body)
	if err != nil {
		logging.LogRawBytes("Unparseable module response", []byte(body))
		return nil, NewParseError("failed to parse egon_data document", err)
	}
	return data, nil
}

// getText performs one GET and returns the Windows-1250 decoded body
func (c *Client) getText(ctx context.Context, path string) (string, error) {
	endpoint := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", NewNetworkError("failed to create request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewNetworkError("request failed", err)
		logging.LogRequest(http.MethodGet, endpoint, 0, 0, devErr)
		return "", devErr
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		devErr := NewNetworkError("failed to read response body", err)
		logging.LogRequest(http.MethodGet, endpoint, resp.StatusCode, 0, devErr)
		return "", devErr
	}
	logging.LogRequest(http.MethodGet, endpoint, resp.StatusCode, len(raw), nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := DecodeBody(raw)
	if err != nil {
		return "", NewParseError("failed to decode Windows-1250 body", err)
	}
	return body, nil
}
