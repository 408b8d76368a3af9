// snapshot/provider.go
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

// Provider captures an environment snapshot. The snapshot fetch is the
// only blocking call in an evaluation run; providers honor the caller's
// context for timeout and cancellation.
type Provider interface {
	Capture(ctx context.Context) (model.Snapshot, error)
}

// StaticProvider serves a fixed attribute map. Used for profile-driven
// evaluations where the caller supplies the attributes inline, and in
// tests.
type StaticProvider struct {
	attributes map[string]interface{}
}

func NewStaticProvider(attributes map[string]interface{}) *StaticProvider {
	return &StaticProvider{attributes: attributes}
}

func (p *StaticProvider) Capture(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		Attributes: p.attributes,
		TakenAt:    time.Now(),
		Source:     "static",
	}, nil
}

// HTTPProvider fetches a JSON attribute document from a collector
// endpoint.
type HTTPProvider struct {
	url    string
	client *http.Client
}

func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Capture(ctx context.Context) (model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error("Snapshot fetch failed", zap.String("url", p.url), zap.Error(err))
		return model.Snapshot{}, fmt.Errorf("%w: %v", conformd_errors.ErrSnapshotUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Snapshot{}, fmt.Errorf("%w: collector returned status %d",
			conformd_errors.ErrSnapshotUnavailable, resp.StatusCode)
	}

	var attributes map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&attributes); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: failed to decode collector response: %v",
			conformd_errors.ErrSnapshotUnavailable, err)
	}

	return model.Snapshot{
		Attributes: attributes,
		TakenAt:    time.Now(),
		Source:     p.url,
	}, nil
}
