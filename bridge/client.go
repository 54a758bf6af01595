package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/failsafe/errors"
)

// Client invokes channels on a remote bridge mounted with Mount and turns
// failure envelopes back into *errors.AppError values.
type Client struct {
	baseURL string
	http    *http.Client
	errs    *errors.Factory
}

// NewClient creates a client for the bridge at baseURL. A nil hc uses a
// client with a 30 second timeout.
func NewClient(baseURL string, hc *http.Client, errs *errors.Factory) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if errs == nil {
		errs = errors.NewFactory(0)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, errs: errs}
}

// Invoke calls channel with args and returns the raw success payload.
func (c *Client) Invoke(ctx context.Context, channel string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(Request{Args: args})
	if err != nil {
		return nil, c.errs.New(errors.CodeSerializationFailed, err.Error(), errors.WithCause(err))
	}

	endpoint := c.baseURL + "/ipc/" + url.PathEscape(channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.errs.Classify(err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.errs.Classify(err, errors.WithMetadata("channel", channel))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.errs.Classify(fmt.Errorf("read response: %w", err))
	}

	var env errors.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, c.errs.InvalidResponse(fmt.Sprintf("HTTP %d with a body that is not an envelope", resp.StatusCode),
			errors.WithCause(err), errors.WithMetadata("channel", channel))
	}
	if !env.Success {
		appErr, err := errors.FromEnvelope(env)
		if err != nil {
			return nil, c.errs.InvalidResponse(err.Error(), errors.WithCause(err))
		}
		return nil, appErr
	}
	return env.Data, nil
}

// Call is Invoke decoding the payload into out.
func (c *Client) Call(ctx context.Context, channel string, out any, args ...any) error {
	raw, err := c.Invoke(ctx, channel, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.errs.InvalidResponse("payload does not match the expected shape", errors.WithCause(err))
	}
	return nil
}
