package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ListProducts fetches one catalog page. pageInfo is the opaque cursor
// from a previous call's return value (empty for the first page); the
// next cursor comes out of the response Link header's rel="next" entry
// and is empty on the final page. The cursor can be persisted and fed
// back in a later invocation, so multi-thousand-variant catalogs are
// walked across many bounded runs.
func (c *Client) ListProducts(ctx context.Context, limit int, pageInfo string) ([]Product, string, error) {
	if limit <= 0 {
		limit = 50
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if pageInfo != "" {
		// page_info requests forbid other filters besides limit
		q.Set("page_info", pageInfo)
	} else {
		q.Set("status", "active")
	}

	endpoint := c.baseURL() + "/products.json?" + q.Encode()
	respBody, header, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}

	var data struct {
		Products []Product `json:"products"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, "", err
	}

	return data.Products, nextPageInfo(header.Get("Link")), nil
}

// nextPageInfo extracts the page_info cursor from a Link header entry
// with rel="next". Returns "" when no next page exists.
func nextPageInfo(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(part[start+1 : end]))
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}
