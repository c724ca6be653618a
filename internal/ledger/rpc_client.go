package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	observe     CallObserver
	requestID   atomic.Uint64
}

// CallObserver receives the outcome of every RPC call, retries
// included in the duration.
type CallObserver func(method string, duration time.Duration, err error)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCallObserver registers an observer invoked after every call.
func WithCallObserver(fn CallObserver) ClientOption {
	return func(c *HTTPClient) {
		c.observe = fn
	}
}

// NewHTTPClient creates a new ledger RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, result)
	if c.observe != nil {
		c.observe(method, time.Since(start), err)
	}
	return err
}

func (c *HTTPClient) doCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// objectContent is the raw content payload of an object response.
type objectContent struct {
	DataType string                 `json:"dataType"`
	Type     string                 `json:"type"`
	Fields   map[string]interface{} `json:"fields"`
}

// objectData is the raw data payload of an object response.
type objectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Content  *objectContent `json:"content"`
}

// getObjectResult is the raw RPC response for object fetches.
type getObjectResult struct {
	Data  *objectData            `json:"data"`
	Error map[string]interface{} `json:"error"`
}

// toObject maps a raw object result to an Object, or nil when absent.
func (r *getObjectResult) toObject() *Object {
	if r.Data == nil || r.Data.Content == nil {
		return nil
	}
	version, _ := strconv.ParseInt(r.Data.Version, 10, 64)
	return &Object{
		ObjectID: r.Data.ObjectID,
		Type:     r.Data.Content.Type,
		Version:  version,
		Fields:   r.Data.Content.Fields,
	}
}

// GetObject retrieves an object's content by id.
func (c *HTTPClient) GetObject(ctx context.Context, objectID string) (*Object, error) {
	params := []interface{}{
		objectID,
		map[string]interface{}{"showContent": true},
	}

	var result getObjectResult
	if err := c.call(ctx, "sui_getObject", params, &result); err != nil {
		return nil, err
	}

	return result.toObject(), nil
}

// getDynamicFieldsResult is the raw RPC response for dynamic field listing.
type getDynamicFieldsResult struct {
	Data []struct {
		ObjectID   string           `json:"objectId"`
		Name       DynamicFieldName `json:"name"`
		ObjectType string           `json:"objectType"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// GetDynamicFields lists dynamic fields attached to a parent object.
func (c *HTTPClient) GetDynamicFields(ctx context.Context, parentID string) ([]DynamicFieldInfo, error) {
	var result getDynamicFieldsResult
	if err := c.call(ctx, "suix_getDynamicFields", []interface{}{parentID}, &result); err != nil {
		return nil, err
	}

	fields := make([]DynamicFieldInfo, 0, len(result.Data))
	for _, d := range result.Data {
		fields = append(fields, DynamicFieldInfo{
			ObjectID:   d.ObjectID,
			Name:       d.Name,
			ObjectType: d.ObjectType,
		})
	}
	return fields, nil
}

// GetDynamicFieldObject retrieves the object behind a named dynamic field.
func (c *HTTPClient) GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*Object, error) {
	params := []interface{}{parentID, name}

	var result getObjectResult
	if err := c.call(ctx, "suix_getDynamicFieldObject", params, &result); err != nil {
		return nil, err
	}

	return result.toObject(), nil
}

// queryEventsResult is the raw RPC response for event queries.
type queryEventsResult struct {
	Data []struct {
		ID          EventCursor            `json:"id"`
		Type        string                 `json:"type"`
		TimestampMs string                 `json:"timestampMs"`
		ParsedJSON  map[string]interface{} `json:"parsedJson"`
	} `json:"data"`
	NextCursor  *EventCursor `json:"nextCursor"`
	HasNextPage bool         `json:"hasNextPage"`
}

// QueryEvents retrieves one page of events matching the filter.
func (c *HTTPClient) QueryEvents(ctx context.Context, filter EventFilter, cursor *EventCursor, limit int) (*EventPage, error) {
	query := map[string]interface{}{
		"MoveEventType": filter.EventType,
	}

	params := []interface{}{query}
	if cursor != nil {
		params = append(params, cursor)
	} else {
		params = append(params, nil)
	}
	if limit > 0 {
		params = append(params, limit)
	}

	var result queryEventsResult
	if err := c.call(ctx, "suix_queryEvents", params, &result); err != nil {
		return nil, err
	}

	page := &EventPage{
		NextCursor:  result.NextCursor,
		HasNextPage: result.HasNextPage,
	}
	for _, e := range result.Data {
		ts, _ := strconv.ParseInt(e.TimestampMs, 10, 64)
		page.Events = append(page.Events, Event{
			TxDigest:    e.ID.TxDigest,
			EventSeq:    e.ID.EventSeq,
			Type:        e.Type,
			TimestampMs: ts,
			ParsedJSON:  e.ParsedJSON,
		})
	}
	return page, nil
}

// getTransactionBlockResult is the raw RPC response for tx-block fetches.
type getTransactionBlockResult struct {
	Digest      string `json:"digest"`
	TimestampMs string `json:"timestampMs"`
	Transaction *struct {
		Data *struct {
			Transaction *struct {
				Kind   string `json:"kind"`
				Inputs []struct {
					Type      string      `json:"type"`
					ValueType string      `json:"valueType"`
					Value     interface{} `json:"value"`
					ObjectID  string      `json:"objectId"`
				} `json:"inputs"`
			} `json:"transaction"`
		} `json:"data"`
	} `json:"transaction"`
}

// GetTransactionBlock retrieves a transaction block with its typed
// inputs. The digest must be a well-formed base58 digest; malformed
// digests are rejected locally without issuing a call.
func (c *HTTPClient) GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlock, error) {
	if !IsValidDigest(digest) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDigest, digest)
	}

	params := []interface{}{
		digest,
		map[string]interface{}{"showInput": true},
	}

	var result getTransactionBlockResult
	if err := c.call(ctx, "sui_getTransactionBlock", params, &result); err != nil {
		return nil, err
	}

	if result.Digest == "" {
		return nil, nil
	}

	ts, _ := strconv.ParseInt(result.TimestampMs, 10, 64)
	block := &TransactionBlock{
		Digest:      result.Digest,
		TimestampMs: ts,
	}

	if result.Transaction != nil && result.Transaction.Data != nil && result.Transaction.Data.Transaction != nil {
		for _, in := range result.Transaction.Data.Transaction.Inputs {
			block.Inputs = append(block.Inputs, TransactionInput{
				Kind:      in.Type,
				ValueType: in.ValueType,
				Value:     in.Value,
				ObjectID:  in.ObjectID,
			})
		}
	}

	return block, nil
}
