// Package testutils contains code that is useful in tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	AllChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func CreateRandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = AllChars[rand.Intn(len(AllChars))]
	}
	return string(b)
}

// RecordedRequest is a request received by a FakeAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
	Body   []byte
}

// FakeAPI is an in-process stand in for the brokerage API. Handlers are
// registered with http.ServeMux patterns and every request is recorded.
type FakeAPI struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{mux: http.NewServeMux()}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	return f
}

// URL returns the base URL of the server.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// Handle registers handler for pattern.
func (f *FakeAPI) Handle(pattern string, handler http.HandlerFunc) {
	f.mux.HandleFunc(pattern, handler)
}

// HandleJSON registers a handler that always answers with status and body encoded as JSON.
func (f *FakeAPI) HandleJSON(pattern string, status int, body any) {
	f.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Requests returns the recorded requests whose path equals path, or every request if path is empty.
func (f *FakeAPI) Requests(path string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedRequest
	for _, r := range f.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	recorded := RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		recorded.Form, _ = url.ParseQuery(string(body))
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded)
	f.mu.Unlock()

	r.Body = io.NopCloser(bytes.NewReader(body))
	f.mux.ServeHTTP(w, r)
}

// WriteJSON writes body encoded as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// MustMarshalJSON encodes v or fails the test.
func MustMarshalJSON(t require.TestingT, v any) []byte {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
