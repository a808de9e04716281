// Package snapshot fetches the full tournament replica over plain HTTP.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/types"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second

	maxBodyBytes = 64 << 20
)

// DefaultURLTemplate is appended to the server base URL when no explicit
// snapshot URL is configured.
const DefaultURLTemplate = "/tmdb/tournament/{slug}/json/"

// StatusError is a non-200 snapshot response. Body is the raw response text.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("snapshot fetch failed: %d %s", e.StatusCode, e.Body)
}

type Fetcher interface {
	Fetch(ctx context.Context, slug string) ([]store.Record, error)
}

// HTTPFetcher GETs URLTemplate with {slug} substituted.
type HTTPFetcher struct {
	URLTemplate string
	Client      *http.Client
}

func NewHTTPFetcher(urlTemplate string) *HTTPFetcher {
	return &HTTPFetcher{URLTemplate: urlTemplate, Client: defaultClient()}
}

// URLTemplateFor builds the default template for a server base URL.
func URLTemplateFor(base string) string {
	return strings.TrimRight(base, "/") + DefaultURLTemplate
}

func defaultClient() *http.Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{Transport: transport, Timeout: defaultTimeout}
}

func (f *HTTPFetcher) URL(slug string) string {
	return strings.ReplaceAll(f.URLTemplate, "{slug}", slug)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, slug string) ([]store.Record, error) {
	client := f.Client
	if client == nil {
		client = defaultClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(slug), nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return types.DecodeSnapshot(body)
}
