package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"atelier-sync/internal/config"
)

const (
	retryMax       = 3
	retryBaseDelay = time.Second
	writePaceDelay = 200 * time.Millisecond
)

// Client wraps the Shopify Admin REST API. Throttling (429) is retried
// internally with the Retry-After hint when present, exponential backoff
// otherwise; any other non-2xx status is returned to the caller as an
// *APIError without retry. Mutating calls are paced so bulk loops do not
// trip the remote rate limiter.
type Client struct {
	cfg        config.ShopifyConfig
	httpClient *http.Client

	retryBase time.Duration
	pace      time.Duration
}

func NewClient(cfg config.ShopifyConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		retryBase:  retryBaseDelay,
		pace:       writePaceDelay,
	}
}

// ValidateCredentials surfaces the fatal configuration error class:
// engines call it before the first remote request and abort the whole
// invocation when credentials are missing.
func (c *Client) ValidateCredentials() error {
	return c.cfg.Validate()
}

func (c *Client) baseURL() string {
	domain := strings.TrimSpace(c.cfg.ShopDomain)
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")
	return domain + "/admin/api/" + c.cfg.APIVersion
}

// doRequest performs one HTTP exchange with bounded 429 retries and
// returns the body plus response headers (the catalog walker reads the
// Link header for its cursor).
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload []byte) ([]byte, http.Header, error) {
	for attempt := 0; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.cfg.Token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, resp.Header, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < retryMax {
			if err := sleepWithContext(ctx, c.retryDelay(resp.Header, attempt)); err != nil {
				return nil, nil, err
			}
			continue
		}

		return nil, nil, newAPIError(resp.StatusCode, resp.Status, respBody)
	}
}

// retryDelay honors the Retry-After header when the platform sends one,
// otherwise doubles the base delay per attempt.
func (c *Client) retryDelay(h http.Header, attempt int) time.Duration {
	if raw := h.Get("Retry-After"); raw != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return c.retryBase << attempt
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// paceWrites inserts the fixed delay after a successful mutating call.
func (c *Client) paceWrites(ctx context.Context) {
	_ = sleepWithContext(ctx, c.pace)
}

// UpdateVariantSKU rewrites a single variant's SKU via PUT /variants/{id}.
func (c *Client) UpdateVariantSKU(ctx context.Context, variantID int64, newSKU string) error {
	payload, err := json.Marshal(map[string]any{
		"variant": map[string]any{
			"id":  variantID,
			"sku": newSKU,
		},
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/variants/%d.json", c.baseURL(), variantID)
	if _, _, err := c.doRequest(ctx, http.MethodPut, endpoint, payload); err != nil {
		return err
	}
	c.paceWrites(ctx)
	return nil
}

// FindVariantBySKU locates a remote variant by exact SKU match. Returns
// ErrVariantNotFound when the platform has no variant with that SKU.
func (c *Client) FindVariantBySKU(ctx context.Context, skuValue string) (*Variant, error) {
	endpoint := fmt.Sprintf("%s/variants.json?sku=%s", c.baseURL(), url.QueryEscape(skuValue))
	respBody, _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Variants []Variant `json:"variants"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, err
	}
	for i := range data.Variants {
		if data.Variants[i].SKU == skuValue {
			return &data.Variants[i], nil
		}
	}
	return nil, ErrVariantNotFound
}

// GetInventoryLevels returns current stock per location for one
// inventory item.
func (c *Client) GetInventoryLevels(ctx context.Context, inventoryItemID int64) ([]InventoryLevel, error) {
	endpoint := fmt.Sprintf("%s/inventory_levels.json?inventory_item_ids=%d", c.baseURL(), inventoryItemID)
	respBody, _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		InventoryLevels []InventoryLevel `json:"inventory_levels"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, err
	}
	return data.InventoryLevels, nil
}

// SetInventoryLevel writes an absolute stock count at one location. The
// push engine implements additive updates by reading the current level
// first and setting base+delta.
func (c *Client) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error {
	payload, err := json.Marshal(map[string]any{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	})
	if err != nil {
		return err
	}

	endpoint := c.baseURL() + "/inventory_levels/set.json"
	if _, _, err := c.doRequest(ctx, http.MethodPost, endpoint, payload); err != nil {
		return err
	}
	c.paceWrites(ctx)
	return nil
}
