package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/domain/checkout"
	"github.com/mmstore/storefront/internal/domain/product"
	"github.com/mmstore/storefront/internal/domain/user"
)

type errorResponse struct {
	Code    int                   `json:"code"`
	Message string                `json:"message"`
	Fields  []checkout.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps core errors onto the HTTP taxonomy. Everything the
// domain can return is recoverable; nothing here is allowed to panic or leak
// internals.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: "checkout form is invalid",
			Fields:  verr.Fields,
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusConflict, "cart is empty")
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		writeError(w, http.StatusConflict, "checkout already in progress")
	case errors.Is(err, checkout.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, "payment declined, cart preserved for retry")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, user.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, user.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		zctx.From(r.Context()).Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream catalog unavailable")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
