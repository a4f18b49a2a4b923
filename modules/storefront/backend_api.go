package storefront

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/backend"
	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// BackendAPI serves the payment backend endpoints over a checkout.Backend.
// The wire shapes are the ones pkg/backend's client speaks.
type BackendAPI struct {
	backend        checkout.Backend
	publishableKey string
	log            *slog.Logger
}

func NewBackendAPI(b checkout.Backend, publishableKey string, log *slog.Logger) *BackendAPI {
	if b == nil {
		panic("storefront: backend is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &BackendAPI{backend: b, publishableKey: publishableKey, log: log.With(logger.Component("backend_api"))}
}

// Routes registers the endpoints on r.
func (a *BackendAPI) Routes(r chi.Router) {
	r.Get(backend.PathConfig, a.config)
	r.Post(backend.PathCreateCustomer, a.createCustomer)
	r.Post(backend.PathCreateSubscription, a.createSubscription)
	r.Post(backend.PathCancelSubscription, a.cancelSubscription)
	r.Post(backend.PathSetDefaultPaymentMethod, a.setDefaultPaymentMethod)
	r.Post(backend.PathRetrieveUpcomingInvoice, a.retrieveUpcomingInvoice)
	r.Post(backend.PathUpdateSubscription, a.updateSubscription)
	r.Post(backend.PathRetrieveCustomerPaymentMethod, a.retrieveCustomerPaymentMethod)
}

func (a *BackendAPI) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.ConfigResponse{PublishableKey: a.publishableKey})
}

func (a *BackendAPI) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, r, a.log, checkout.ErrMissingEmail)
		return
	}
	customer, err := a.backend.CreateCustomer(r.Context(), email)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.CreateCustomerResponse{Customer: customer})
}

func (a *BackendAPI) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if req.CustomerID == "" {
		writeError(w, r, a.log, checkout.ErrMissingCustomerID)
		return
	}
	if req.PriceID == "" {
		writeError(w, r, a.log, checkout.ErrMissingPriceID)
		return
	}
	sub, err := a.backend.CreateSubscription(r.Context(), req.CustomerID, req.PriceID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	a.log.InfoContext(r.Context(), "subscription created",
		logger.CustomerID(req.CustomerID), logger.PriceID(req.PriceID))
	writeJSON(w, http.StatusOK, sub)
}

func (a *BackendAPI) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req backend.CancelSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.backend.CancelSubscription(r.Context(), req.SubscriptionID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *BackendAPI) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req backend.SetDefaultPaymentMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.backend.SetDefaultPaymentMethod(r.Context(), req.CustomerID, req.PaymentMethodID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *BackendAPI) retrieveUpcomingInvoice(w http.ResponseWriter, r *http.Request) {
	var req backend.RetrieveUpcomingInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	inv, err := a.backend.RetrieveUpcomingInvoice(r.Context(), req.CustomerID, req.SubscriptionID, req.NewPriceID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *BackendAPI) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req backend.UpdateSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.backend.UpdateSubscription(r.Context(), req.SubscriptionID, req.NewPriceID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *BackendAPI) retrieveCustomerPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req backend.RetrieveCustomerPaymentMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	pm, err := a.backend.RetrieveCustomerPaymentMethod(r.Context(), req.PaymentMethodID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}
