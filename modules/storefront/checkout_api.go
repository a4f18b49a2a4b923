package storefront

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/backend"
	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/provision"
)

// AccessManager exposes provisioned access to the account page.
type AccessManager interface {
	Revoke(ctx context.Context, subscriptionID string) error
	Active(ctx context.Context, customerID string) ([]provision.Grant, error)
}

// CheckoutAPI serves the session-scoped checkout and account endpoints.
// Routes must run behind SessionMiddleware.
type CheckoutAPI struct {
	services ServiceFactory
	access   AccessManager
	log      *slog.Logger
}

func NewCheckoutAPI(services ServiceFactory, access AccessManager, log *slog.Logger) *CheckoutAPI {
	if services == nil {
		panic("storefront: service factory is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CheckoutAPI{services: services, access: access, log: log.With(logger.Component("checkout_api"))}
}

func (a *CheckoutAPI) Routes(r chi.Router) {
	r.Get("/plans", a.plans)

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/plan", a.selectedPlan)
		r.Post("/plan", a.selectPlan)
		r.Post("/customer", a.createCustomer)
		r.Post("/subscription", a.subscription)
		r.Post("/pay", a.pay)
		r.Post("/pay/resume", a.resumePayment)
		r.Post("/submit", a.submit)
		r.Post("/reset", a.reset)
	})

	r.Route("/account", func(r chi.Router) {
		r.Post("/preview", a.preview)
		r.Post("/change-plan", a.changePlan)
		r.Post("/cancel", a.cancel)
		r.Get("/payment-method/{id}", a.paymentMethod)
		r.Get("/access/{customerID}", a.activeAccess)
	})
}

func (a *CheckoutAPI) service(r *http.Request) checkout.Service {
	return a.services(SessionFromContext(r.Context()))
}

type planView struct {
	checkout.Plan
	FormattedAmount string `json:"formattedAmount"`
}

func newPlanView(p checkout.Plan) planView {
	return planView{Plan: p, FormattedAmount: p.FormattedAmount()}
}

func (a *CheckoutAPI) plans(w http.ResponseWriter, r *http.Request) {
	plans := a.service(r).Plans()
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, newPlanView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

type selectPlanRequest struct {
	PriceID string `json:"priceId"`
}

func (a *CheckoutAPI) selectPlan(w http.ResponseWriter, r *http.Request) {
	var req selectPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	svc := a.service(r)
	if err := svc.SelectPlan(r.Context(), req.PriceID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	plan, err := svc.SelectedPlan(r.Context())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlanView(plan))
}

func (a *CheckoutAPI) selectedPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := a.service(r).SelectedPlan(r.Context())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlanView(plan))
}

func (a *CheckoutAPI) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	customer, err := a.service(r).CreateCustomer(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.CreateCustomerResponse{Customer: customer})
}

type subscriptionRequest struct {
	CustomerID string `json:"customerId"`
	PriceID    string `json:"priceId"`
	Refresh    bool   `json:"refresh,omitempty"`
}

// subscription reconciles the session's pending subscription. Without a
// priceId the selected plan is used.
func (a *CheckoutAPI) subscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	svc := a.service(r)
	if req.PriceID == "" {
		plan, err := svc.SelectedPlan(r.Context())
		if err != nil {
			writeError(w, r, a.log, err)
			return
		}
		req.PriceID = plan.ID
	}

	reconcile := svc.GetOrCreateSubscription
	if req.Refresh {
		reconcile = svc.RefreshSubscription
	}
	sub, err := reconcile(r.Context(), req.CustomerID, req.PriceID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type payRequest struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	BillingName     string `json:"billingName,omitempty"`
}

// pay charges the subscription reconciled by /checkout/subscription.
func (a *CheckoutAPI) pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	completion, err := a.service(r).Pay(r.Context(), req.CustomerID, checkout.PaymentInput{
		PaymentMethodID: req.PaymentMethodID,
		BillingName:     req.BillingName,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

type resumeRequest struct {
	CustomerID string `json:"customerId"`
}

// resumePayment is called by the browser once the card challenge returned
// by pay or submit has been answered.
func (a *CheckoutAPI) resumePayment(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	completion, err := a.service(r).ResumePayment(r.Context(), req.CustomerID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

type submitRequest struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	BillingName     string `json:"billingName,omitempty"`
}

func (a *CheckoutAPI) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	completion, err := a.service(r).Submit(r.Context(), req.CustomerID, checkout.PaymentInput{
		PaymentMethodID: req.PaymentMethodID,
		BillingName:     req.BillingName,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (a *CheckoutAPI) reset(w http.ResponseWriter, r *http.Request) {
	if err := a.service(r).Reset(r.Context()); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewResponse struct {
	checkout.UpcomingInvoice
	FormattedAmountDue string `json:"formattedAmountDue,omitempty"`
}

func (a *CheckoutAPI) preview(w http.ResponseWriter, r *http.Request) {
	var req backend.RetrieveUpcomingInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	svc := a.service(r)
	inv, err := svc.PreviewPlanChange(r.Context(), req.CustomerID, req.SubscriptionID, req.NewPriceID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	resp := previewResponse{UpcomingInvoice: *inv}
	for _, p := range svc.Plans() {
		if p.ID == req.NewPriceID {
			resp.FormattedAmountDue, _ = checkout.FormatAmount(inv.AmountDue, p.Currency)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *CheckoutAPI) changePlan(w http.ResponseWriter, r *http.Request) {
	var req backend.UpdateSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.service(r).ChangePlan(r.Context(), req.SubscriptionID, req.NewPriceID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *CheckoutAPI) cancel(w http.ResponseWriter, r *http.Request) {
	var req backend.CancelSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.service(r).CancelSubscription(r.Context(), req.SubscriptionID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if a.access != nil {
		// The gateway already cancelled; access bookkeeping must not fail the request.
		if err := a.access.Revoke(r.Context(), req.SubscriptionID); err != nil {
			a.log.ErrorContext(r.Context(), "revoke access failed",
				logger.SubscriptionID(req.SubscriptionID), logger.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *CheckoutAPI) paymentMethod(w http.ResponseWriter, r *http.Request) {
	card, err := a.service(r).PaymentMethodSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (a *CheckoutAPI) activeAccess(w http.ResponseWriter, r *http.Request) {
	if a.access == nil {
		writeJSON(w, http.StatusOK, map[string]any{"grants": []provision.Grant{}})
		return
	}
	grants, err := a.access.Active(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if grants == nil {
		grants = []provision.Grant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
}
