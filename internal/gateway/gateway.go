// Package gateway implements the remote resource gateway: collection
// oriented REST verbs against the storefront data source. It owns no
// business logic; its single job is moving JSON records and classifying
// transport failures into the apperr taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-client/internal/apperr"
	"storefront-client/internal/util"

	"go.uber.org/zap"
)

// Client talks to a generic REST CRUD endpoint. Collections are addressed
// as /{collection} and support equality filtering via query parameters.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// List fetches the full collection into out.
func (c *Client) List(ctx context.Context, collection string, out interface{}) error {
	return c.do(ctx, http.MethodGet, collection, c.collectionURL(collection), nil, out)
}

// Filter fetches the subset of the collection where field equals value.
func (c *Client) Filter(ctx context.Context, collection, field, value string, out interface{}) error {
	u := fmt.Sprintf("%s?%s=%s", c.collectionURL(collection), url.QueryEscape(field), url.QueryEscape(value))
	return c.do(ctx, http.MethodGet, collection, u, nil, out)
}

// Get fetches a single record by id into out.
func (c *Client) Get(ctx context.Context, collection string, id int64, out interface{}) error {
	return c.do(ctx, http.MethodGet, collection, c.recordURL(collection, id), nil, out)
}

// Create posts a new record; the server assigns the id and returns the full
// record into out.
func (c *Client) Create(ctx context.Context, collection string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, collection, c.collectionURL(collection), body, out)
}

// Patch partially updates a record and returns the full updated record
// into out.
func (c *Client) Patch(ctx context.Context, collection string, id int64, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, collection, c.recordURL(collection, id), body, out)
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, collection string, id int64) error {
	return c.do(ctx, http.MethodDelete, collection, c.recordURL(collection, id), nil, nil)
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, collection)
}

func (c *Client) recordURL(collection string, id int64) string {
	return fmt.Sprintf("%s/%s/%d", c.baseURL, collection, id)
}

func (c *Client) do(ctx context.Context, method, collection, rawURL string, body, out interface{}) error {
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "failed to encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		classified := classifyTransport(err)
		c.observe(method, collection, string(apperr.KindOf(classified)), start)
		c.logger.Warn("Gateway request failed",
			zap.String("method", method),
			zap.String("collection", collection),
			zap.Error(err))
		return classified
	}
	defer resp.Body.Close()

	c.observe(method, collection, fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, method, collection, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindServerError, "failed to decode response", err)
	}
	return nil
}

func (c *Client) observe(method, collection, outcome string, start time.Time) {
	util.GatewayRequestDuration.WithLabelValues(method, collection).Observe(time.Since(start).Seconds())
	util.GatewayRequestsTotal.WithLabelValues(method, collection, outcome).Inc()
}

// classifyTransport maps errors raised before any HTTP response arrived.
// These are the only failures that count toward the unavailable escalation.
func classifyTransport(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return apperr.Wrap(apperr.KindTimeout, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, "request timed out", err)
	}
	return apperr.Wrap(apperr.KindNetworkUnreachable, "data source unreachable", err)
}

// classifyStatus maps server-returned error responses. These resolve the
// request without touching the network failure counter.
func classifyStatus(status int, method, collection, payload string) error {
	msg := fmt.Sprintf("%s %s returned %d", method, collection, status)
	if payload != "" {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(payload))
	}
	switch {
	case status == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, msg)
	case status == http.StatusConflict:
		return apperr.New(apperr.KindConflict, msg)
	case status >= 400 && status < 500:
		return apperr.New(apperr.KindValidation, msg)
	default:
		return apperr.New(apperr.KindServerError, msg)
	}
}
