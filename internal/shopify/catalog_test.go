package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListProductsFollowsLinkCursor(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RawQuery)
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/admin/api/2024-07/products.json?limit=2&page_info=cursor-2>; rel="next"`, r.Host))
			w.Write([]byte(`{"products":[{"id":1,"title":"Linen Shirt","variants":[{"id":10,"product_id":1,"sku":"SHOPIFY-1"}]}]}`))
			return
		}
		// final page: no rel="next"
		w.Header().Set("Link", `<https://example/products.json?page_info=cursor-1>; rel="previous"`)
		w.Write([]byte(`{"products":[{"id":2,"title":"Cotton Dress","variants":[{"id":20,"product_id":2,"sku":"COT-BLU-M-042"}]}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv)

	page1, next, err := c.ListProducts(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page1) != 1 || page1[0].ID != 1 {
		t.Fatalf("unexpected first page: %+v", page1)
	}
	if next != "cursor-2" {
		t.Fatalf("expected cursor-2, got %q", next)
	}

	page2, next, err := c.ListProducts(context.Background(), 2, next)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != 2 {
		t.Fatalf("unexpected second page: %+v", page2)
	}
	if next != "" {
		t.Errorf("expected walk termination, got cursor %q", next)
	}
}

func TestNextPageInfo(t *testing.T) {
	cases := []struct {
		name string
		link string
		want string
	}{
		{"empty", "", ""},
		{"next only", `<https://x.myshopify.com/admin/api/2024-07/products.json?limit=50&page_info=abc123>; rel="next"`, "abc123"},
		{"previous and next", `<https://x/p.json?page_info=prev>; rel="previous", <https://x/p.json?page_info=nxt>; rel="next"`, "nxt"},
		{"previous only", `<https://x/p.json?page_info=prev>; rel="previous"`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextPageInfo(tc.link); got != tc.want {
				t.Errorf("nextPageInfo(%q) = %q, want %q", tc.link, got, tc.want)
			}
		})
	}
}
