package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultHTTPTimeout = 10 * time.Second
)

// HTTPSource fetches quotes from a simple-price JSON endpoint of the
// form {"<asset>": {"usd": <price>}}.
type HTTPSource struct {
	endpoint string
	asset    string
	client   *http.Client
}

// HTTPOption configures HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a quote source for one asset id.
func NewHTTPSource(endpoint, asset string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		endpoint: endpoint,
		asset:    asset,
		client:   &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ Source = (*HTTPSource)(nil)

// GetPrice fetches one quote. Any failure yields a zero-value quote
// with StatusError; callers apply their own fallback.
func (s *HTTPSource) GetPrice(ctx context.Context) Quote {
	value, err := s.fetch(ctx)
	if err != nil || value <= 0 {
		return Quote{Status: StatusError}
	}
	return Quote{Value: value, Status: StatusOK}
}

func (s *HTTPSource) fetch(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", s.endpoint, s.asset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}

	value, ok := parsed[s.asset]["usd"]
	if !ok {
		return 0, fmt.Errorf("asset %q missing from response", s.asset)
	}
	return value, nil
}
