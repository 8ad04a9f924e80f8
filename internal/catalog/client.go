// Package catalog is the typed client for the remote product catalog. It is a
// read-only collaborator: the storefront consumes products from it and never
// writes back.
package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mmstore/storefront/internal/domain/product"
)

// Compile-time check that the client satisfies the catalog port.
var _ product.Source = (*Client)(nil)

// Category is one entry of the catalog's category index.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Client talks to a dummyjson-compatible products API.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient creates a Client for the given base URL, e.g.
// "https://dummyjson.com". Outgoing requests carry OpenTelemetry spans.
func NewClient(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, product.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}
	return body, nil
}

// List fetches one page of the catalog.
func (c *Client) List(ctx context.Context, limit, skip int) ([]product.Product, error) {
	page, err := c.page(ctx, limit, skip)
	if err != nil {
		return nil, err
	}
	return page.products, nil
}

func (c *Client) page(ctx context.Context, limit, skip int) (*page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	body, err := c.get(ctx, "/products", q)
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// GetByID fetches a single product. Unknown ids map to product.ErrNotFound.
func (c *Client) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	body, err := c.get(ctx, "/products/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	p, err := decodeProductBytes(body)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ByCategory fetches all products in a category.
func (c *Client) ByCategory(ctx context.Context, slug string) ([]product.Product, error) {
	body, err := c.get(ctx, "/products/category/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	page, err := decodePage(body)
	if err != nil {
		return nil, err
	}
	return page.products, nil
}

// Search runs a full-text query against the catalog.
func (c *Client) Search(ctx context.Context, query string) ([]product.Product, error) {
	q := url.Values{}
	q.Set("q", query)
	body, err := c.get(ctx, "/products/search", q)
	if err != nil {
		return nil, err
	}
	page, err := decodePage(body)
	if err != nil {
		return nil, err
	}
	return page.products, nil
}

// Categories fetches the category index. Both the bare-slug and the
// object-per-category response shapes are accepted.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	body, err := c.get(ctx, "/products/categories", nil)
	if err != nil {
		return nil, err
	}
	return decodeCategories(body)
}

// allPageSize is the page size used by All; dummyjson caps pages at 100.
const allPageSize = 100

// All prefetches the entire catalog, fetching pages concurrently after the
// first page reveals the total.
func (c *Client) All(ctx context.Context) ([]product.Product, error) {
	first, err := c.page(ctx, allPageSize, 0)
	if err != nil {
		return nil, errors.Wrap(err, "fetch first page")
	}
	if first.total <= len(first.products) {
		return first.products, nil
	}

	pages := (first.total + allPageSize - 1) / allPageSize
	results := make([][]product.Product, pages)
	results[0] = first.products

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 1; i < pages; i++ {
		g.Go(func() error {
			p, err := c.page(gctx, allPageSize, i*allPageSize)
			if err != nil {
				return errors.Wrapf(err, "fetch page %d", i)
			}
			results[i] = p.products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]product.Product, 0, first.total)
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
