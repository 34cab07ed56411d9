// Package authority is a thin typed client for the remote certificate
// provisioning authority. Each method performs exactly one network call;
// retries are the caller's responsibility.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"certsync/internal/models"
)

// Client talks to the remote provisioning authority
type Client struct {
	baseURL    string
	zoneID     string
	token      string
	httpClient *http.Client
}

// New creates a new authority client
func New(baseURL, zoneID, token string) *Client {
	return &Client{
		baseURL: baseURL,
		zoneID:  zoneID,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Create registers a hostname with the authority and returns the new record
func (c *Client) Create(ctx context.Context, hostname string) (*models.Record, error) {
	body := map[string]string{"hostname": hostname}

	rec := &models.Record{}
	if err := c.do(ctx, http.MethodPost, c.hostnamesPath(""), body, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get fetches the current authority record for an id
func (c *Client) Get(ctx context.Context, id string) (*models.Record, error) {
	rec := &models.Record{}
	if err := c.do(ctx, http.MethodGet, c.hostnamesPath(id), nil, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Lookup queries the authority by hostname filter. Returns nil when the
// authority reports no match.
func (c *Client) Lookup(ctx context.Context, hostname string) (*models.Record, error) {
	path := c.hostnamesPath("") + "?hostname=" + url.QueryEscape(hostname)

	var records []*models.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Patch updates the certificate settings for an id
func (c *Client) Patch(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error) {
	body := map[string]json.RawMessage{"ssl": settings}

	rec := &models.Record{}
	if err := c.do(ctx, http.MethodPatch, c.hostnamesPath(id), body, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the authority record for an id and returns the raw
// delete result reported by the authority
func (c *Client) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.do(ctx, http.MethodDelete, c.hostnamesPath(id), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) hostnamesPath(id string) string {
	path := fmt.Sprintf("/zones/%s/hostnames", c.zoneID)
	if id != "" {
		path += "/" + id
	}
	return path
}

// resultEnvelope is the authority's response wrapper
type resultEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// do performs one request against the authority and decodes the result
// field of the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authority request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read authority response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode authority response: %w", err)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode authority result: %w", err)
	}

	return nil
}
