package testutils

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestServer wraps httptest.Server with a client that keeps cookies and
// does not follow redirects, so tests can assert on Location headers.
type TestServer struct {
	*httptest.Server
	t *testing.T
}

func NewTestServer(t *testing.T, handler http.Handler) *TestServer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &TestServer{
		Server: server,
		t:      t,
	}
}

// NewClient returns an independent browser-like client
func (ts *TestServer) NewClient() *TestClient {
	jar, err := cookiejar.New(nil)
	require.NoError(ts.t, err)
	return &TestClient{
		server: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type TestClient struct {
	server *TestServer
	client *http.Client
}

func (c *TestClient) GET(path string) *http.Response {
	return c.do(http.MethodGet, path, nil)
}

func (c *TestClient) POSTForm(path string, form url.Values) *http.Response {
	return c.do(http.MethodPost, path, form)
}

func (c *TestClient) DELETE(path string) *http.Response {
	return c.do(http.MethodDelete, path, nil)
}

func (c *TestClient) do(method, path string, form url.Values) *http.Response {
	t := c.server.t
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequest(method, c.server.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Cookies returns the cookies the client would send to the server
func (c *TestClient) Cookies() []*http.Cookie {
	u, err := url.Parse(c.server.URL)
	require.NoError(c.server.t, err)
	return c.client.Jar.Cookies(u)
}

// SetCookies replaces the client's cookies for the server
func (c *TestClient) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.server.URL)
	require.NoError(c.server.t, err)
	c.client.Jar.SetCookies(u, cookies)
}
