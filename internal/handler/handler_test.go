package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/catalog"
	"github.com/mmstore/storefront/internal/domain/cart"
	"github.com/mmstore/storefront/internal/domain/checkout"
	"github.com/mmstore/storefront/internal/domain/product"
	"github.com/mmstore/storefront/internal/domain/user"
	"github.com/mmstore/storefront/internal/storage"
)

// --- Mock catalog ---

type mockCatalog struct {
	byID map[int64]product.Product
}

func (m *mockCatalog) List(_ context.Context, _, _ int) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalog) ByCategory(_ context.Context, slug string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.Category == slug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Search(_ context.Context, _ string) ([]product.Product, error) {
	return m.List(context.Background(), 0, 0)
}

func (m *mockCatalog) Categories(_ context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{Slug: "smartphones", Name: "Smartphones"}}, nil
}

func (m *mockCatalog) All(ctx context.Context) ([]product.Product, error) {
	return m.List(ctx, 0, 0)
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestServer(t *testing.T, settler checkout.Settler) (*httptest.Server, *cart.Store, *user.Store) {
	t.Helper()
	ctx := context.Background()
	lg := zap.NewNop()

	cartStore, err := cart.NewStore(ctx, storage.NewMemory(), lg)
	require.NoError(t, err)

	sessions := user.NewSessions([]byte("test-secret"), time.Hour)
	userStore, err := user.NewStore(ctx, storage.NewMemory(), user.AcceptAll{}, sessions, lg)
	require.NoError(t, err)

	cat := &mockCatalog{byID: map[int64]product.Product{
		1: {ID: 1, Title: "Phone", Category: "smartphones", Price: dec("100"), DiscountPercentage: dec("20"), Stock: 5},
		2: {ID: 2, Title: "Sold Out", Price: dec("10"), Stock: 0},
	}}

	asm := checkout.NewAssembler(cartStore, userStore, settler, lg)
	srv := httptest.NewServer(New(cartStore, userStore, asm, cat).Routes())
	t.Cleanup(srv.Close)
	return srv, cartStore, userStore
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func doJSONAuth(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func validCheckoutBody() map[string]any {
	return map[string]any{
		"email":         "jane@example.com",
		"name":          "Jane Doe",
		"street":        "1 Main Street",
		"city":          "Springfield",
		"state":         "IL",
		"zipCode":       "62701",
		"country":       "US",
		"paymentMethod": "credit",
		"cardNumber":    "4532 0151 1283 0366",
		"expiryDate":    "12/27",
		"cvv":           "123",
	}
}

// --- Tests ---

func TestAddItem(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		TotalItems     int     `json:"totalItems"`
		TotalPrice     float64 `json:"totalPrice"`
		FormattedTotal string  `json:"formattedTotal"`
	}
	decodeInto(t, resp, &view)
	assert.Equal(t, 2, view.TotalItems)
	assert.InDelta(t, 160.0, view.TotalPrice, 1e-9)
	assert.Equal(t, "$160.00", view.FormattedTotal)
}

func TestAddItem_OutOfStock(t *testing.T) {
	srv, cartStore, _ := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 2, "quantity": 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 0, cartStore.Len())
}

func TestAddItem_UnknownProduct(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 99, "quantity": 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateItem_UnknownIDIsNoop(t *testing.T) {
	srv, cartStore, _ := newTestServer(t, checkout.DelaySettler{})
	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 2})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPatch, srv.URL+"/cart/items/stale-id", map[string]any{"quantity": 9})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, cartStore.TotalItems())
}

func TestCheckout_EmptyCart(t *testing.T) {
	srv, _, userStore := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/checkout", validCheckoutBody())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, userStore.Orders())
}

func TestCheckout_ValidationErrors(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})
	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 1})
	resp.Body.Close()

	body := validCheckoutBody()
	body["cardNumber"] = "4532 0151 1283 0367" // Luhn failure
	resp = doJSON(t, http.MethodPost, srv.URL+"/checkout", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var errResp struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	decodeInto(t, resp, &errResp)
	require.Len(t, errResp.Fields, 1)
	assert.Equal(t, "cardNumber", errResp.Fields[0].Field)
}

func TestCheckout_Success(t *testing.T) {
	srv, cartStore, _ := newTestServer(t, checkout.DelaySettler{})
	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 2})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/checkout", validCheckoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var placed struct {
		ID     string  `json:"id"`
		Total  float64 `json:"total"`
		Status string  `json:"status"`
	}
	decodeInto(t, resp, &placed)
	assert.NotEmpty(t, placed.ID)
	assert.InDelta(t, 160.0, placed.Total, 1e-9)
	assert.Equal(t, "processing", placed.Status)
	assert.Equal(t, 0, cartStore.Len(), "cart cleared after checkout")

	// The placed order is retrievable by id.
	resp, err := http.Get(srv.URL + "/orders/" + placed.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found struct {
		ID string `json:"id"`
	}
	decodeInto(t, resp, &found)
	assert.Equal(t, placed.ID, found.ID)
}

func TestCheckout_PaymentDeclined(t *testing.T) {
	srv, cartStore, userStore := newTestServer(t, checkout.DeclineSettler{})
	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 2})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/checkout", validCheckoutBody())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, 2, cartStore.TotalItems(), "cart preserved for retry")
	assert.Empty(t, userStore.Orders())
}

func TestGetOrder_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp, err := http.Get(srv.URL + "/orders/ORD-missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	srv, cartStore, userStore := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", map[string]any{
		"email": "jane@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		User  *user.User `json:"user"`
		Token string     `json:"token"`
	}
	decodeInto(t, resp, &session)
	assert.Equal(t, "jane", session.User.Name)
	assert.NotEmpty(t, session.Token)

	resp = doJSON(t, http.MethodPost, srv.URL+"/cart/items", map[string]any{"productId": 1, "quantity": 1})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/auth/logout", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, userStore.Current())
	assert.Equal(t, 0, cartStore.Len(), "logout empties the cart")
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", map[string]any{
		"email": "", "password": "pw",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateProfile_RequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	// No token at all.
	resp := doJSON(t, http.MethodPatch, srv.URL+"/profile", map[string]any{"name": "New Name"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token.
	resp = doJSONAuth(t, http.MethodPatch, srv.URL+"/profile", "not-a-token", map[string]any{"name": "New Name"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateProfile_WithSessionToken(t *testing.T) {
	srv, _, userStore := newTestServer(t, checkout.DelaySettler{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", map[string]any{
		"email": "jane@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		Token string `json:"token"`
	}
	decodeInto(t, resp, &session)

	resp = doJSONAuth(t, http.MethodPatch, srv.URL+"/profile", session.Token, map[string]any{"name": "Jane D."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated user.User
	decodeInto(t, resp, &updated)
	assert.Equal(t, "Jane D.", updated.Name)
	assert.Equal(t, "Jane D.", userStore.Current().Name)
}

func TestListAllProducts(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp, err := http.Get(srv.URL + "/products/all")
	require.NoError(t, err)
	var products []json.RawMessage
	decodeInto(t, resp, &products)
	assert.Len(t, products, 2)
}

func TestListProductsAndCategories(t *testing.T) {
	srv, _, _ := newTestServer(t, checkout.DelaySettler{})

	resp, err := http.Get(srv.URL + "/products?limit=10&skip=0")
	require.NoError(t, err)
	var products []json.RawMessage
	decodeInto(t, resp, &products)
	assert.Len(t, products, 2)

	resp, err = http.Get(srv.URL + "/products/categories")
	require.NoError(t, err)
	var cats []catalog.Category
	decodeInto(t, resp, &cats)
	require.Len(t, cats, 1)
	assert.Equal(t, "smartphones", cats[0].Slug)
}
