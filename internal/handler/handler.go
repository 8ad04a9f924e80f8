// Package handler is the HTTP facade over the storefront core. Handlers only
// decode requests, call into the domain stores, and encode results; every
// business rule lives in the domain packages.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/mmstore/storefront/internal/catalog"
	"github.com/mmstore/storefront/internal/domain/cart"
	"github.com/mmstore/storefront/internal/domain/checkout"
	"github.com/mmstore/storefront/internal/domain/pricing"
	"github.com/mmstore/storefront/internal/domain/product"
	"github.com/mmstore/storefront/internal/domain/user"
)

// Catalog is the product catalog surface the handlers consume.
type Catalog interface {
	product.Source
	Categories(ctx context.Context) ([]catalog.Category, error)
	All(ctx context.Context) ([]product.Product, error)
}

// Handler carries the wired dependencies for all routes.
type Handler struct {
	cart     *cart.Store
	users    *user.Store
	assembly *checkout.Assembler
	catalog  Catalog
	money    *pricing.Formatter
}

// New constructs a Handler.
func New(
	c *cart.Store,
	u *user.Store,
	a *checkout.Assembler,
	cat Catalog,
) *Handler {
	return &Handler{
		cart:     c,
		users:    u,
		assembly: a,
		catalog:  cat,
		money:    pricing.USD,
	}
}

// Routes mounts all storefront endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/all", h.listAllProducts)
		r.Get("/categories", h.listCategories)
		r.Get("/category/{slug}", h.productsByCategory)
		r.Get("/search", h.searchProducts)
		r.Get("/{id}", h.getProduct)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Patch("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.removeItem)
	})

	r.Post("/checkout", h.submitCheckout)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/logout", h.logout)
	})
	r.With(h.requireSession).Patch("/profile", h.updateProfile)

	return r
}
