// Package handler implements the HTTP boundary of the billing API. It decodes
// JSON request bodies with jx, normalizes historical field aliases onto
// canonical domain names, and delegates to the domain services.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storekit/shopbill/internal/domain/coupon"
	"github.com/storekit/shopbill/internal/domain/order"
	"github.com/storekit/shopbill/internal/domain/product"
)

// maxBodyBytes caps request body size on all JSON endpoints.
const maxBodyBytes = 1 << 20

// Handler serves the public API endpoints, delegating business logic to the
// injected domain services.
type Handler struct {
	products     product.Repository
	quoter       coupon.Quoter
	orderService *order.Service
	security     *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
// security may be nil, in which case endpoints are served unauthenticated.
func NewHandler(
	products product.Repository,
	quoter coupon.Quoter,
	orderService *order.Service,
	security *Security,
) *Handler {
	return &Handler{
		products:     products,
		quoter:       quoter,
		orderService: orderService,
		security:     security,
	}
}

// Register attaches all API routes to mux under the /api prefix.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/coupons/apply", h.ApplyCoupon)
	mux.HandleFunc("POST /api/orders", h.protect(h.PlaceOrder))
}

// protect wraps fn with API key authentication when security is configured.
func (h *Handler) protect(fn http.HandlerFunc) http.HandlerFunc {
	if h.security == nil {
		return fn
	}
	return h.security.RequireAPIKey(fn)
}

// writeJSON encodes the buffered jx encoder to the response with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError responds with the standard error envelope {code, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, &e)
}

// readBody reads and length-limits the request body, returning it as a jx
// decoder. A decode-ready body is required on every POST endpoint.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		zctx.From(r.Context()).Debug("body read failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return jx.DecodeBytes(data), true
}
