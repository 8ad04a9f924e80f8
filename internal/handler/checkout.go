package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmstore/storefront/internal/domain/checkout"
	"github.com/mmstore/storefront/internal/domain/order"
)

type orderView struct {
	order.Order
	Total          float64 `json:"total"`
	FormattedTotal string  `json:"formattedTotal"`
}

func (h *Handler) viewOrder(o order.Order) orderView {
	return orderView{
		Order:          o,
		Total:          o.Total.InexactFloat64(),
		FormattedTotal: h.money.FormatCurrency(o.Total),
	}
}

// submitCheckout runs the full checkout flow: form validation, settlement,
// order commit, cart clear. Failure leaves cart and history untouched.
func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeBody(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.assembly.Submit(r.Context(), form)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.viewOrder(*o))
}

func (h *Handler) listOrders(w http.ResponseWriter, _ *http.Request) {
	orders := h.users.Orders()
	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = h.viewOrder(o)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.users.FindOrder(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.viewOrder(*o))
}
