package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmstore/storefront/internal/domain/cart"
)

type lineItemView struct {
	cart.LineItem
	Total float64 `json:"total"`
}

type cartView struct {
	Items          []lineItemView `json:"items"`
	TotalItems     int            `json:"totalItems"`
	TotalPrice     float64        `json:"totalPrice"`
	FormattedTotal string         `json:"formattedTotal"`
}

func (h *Handler) currentCart() cartView {
	items := h.cart.Items()
	views := make([]lineItemView, len(items))
	for i, li := range items {
		views[i] = lineItemView{LineItem: li, Total: li.Total().Round(2).InexactFloat64()}
	}
	total := h.cart.TotalPrice().Round(2)
	return cartView{
		Items:          views,
		TotalItems:     h.cart.TotalItems(),
		TotalPrice:     total.InexactFloat64(),
		FormattedTotal: h.money.FormatCurrency(total),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.currentCart())
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// addItem resolves the product against the catalog and merges it into the
// cart. Out-of-stock products are rejected here, at the boundary; the cart
// store itself does not re-check stock.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if p.Stock == 0 {
		writeError(w, http.StatusConflict, "product is out of stock")
		return
	}

	h.cart.AddItem(r.Context(), *p, req.Quantity)
	writeJSON(w, http.StatusOK, h.currentCart())
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateItem sets a line's quantity; zero removes the line. Unknown line item
// ids are a silent no-op, so stale UI state can never fault.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	writeJSON(w, http.StatusOK, h.currentCart())
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.currentCart())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.currentCart())
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
