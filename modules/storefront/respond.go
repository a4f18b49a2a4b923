package storefront

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/backend"
	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/provision"
)

const maxRequestBody = 64 << 10

var errInvalidBody = errors.New("invalid request body")

// validationErrors are returned to the client with their own text.
var validationErrors = []error{
	checkout.ErrPlanNotFound,
	checkout.ErrMissingCustomerID,
	checkout.ErrMissingEmail,
	checkout.ErrMissingPriceID,
	checkout.ErrMissingSecret,
	checkout.ErrMissingPaymentData,
	provision.ErrInvalidCompletion,
	errInvalidBody,
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errInvalidBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// actionRequiredResponse tells the browser to run the card challenge for
// clientSecret and then call /checkout/pay/resume.
type actionRequiredResponse struct {
	RequiresAction bool              `json:"requiresAction"`
	ClientSecret   string            `json:"clientSecret"`
	Error          backend.ErrorBody `json:"error"`
}

// writeError renders {"error":{"message":"..."}}. Server-side failures are logged.
// A payment waiting for customer authentication is answered with 202 and the
// client secret instead.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if secret, ok := checkout.ActionRequired(err); ok {
		writeJSON(w, http.StatusAccepted, actionRequiredResponse{
			RequiresAction: true,
			ClientSecret:   secret,
			Error:          backend.ErrorBody{Message: checkout.UserMessage(err)},
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), logger.Error(err))
	} else {
		log.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path), slog.Int("status", status), logger.Error(err))
	}
	writeJSON(w, status, backend.ErrorResponse{Error: backend.ErrorBody{Message: messageFor(err)}})
}

func statusFor(err error) int {
	var ge *checkout.GatewayError
	switch {
	case errors.Is(err, checkout.ErrCardDeclined), errors.Is(err, checkout.ErrGatewayConfirmation):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrNoPlanSelected), errors.Is(err, checkout.ErrNoPendingPayment):
		return http.StatusConflict
	case errors.Is(err, provision.ErrGrantNotFound):
		return http.StatusNotFound
	case isValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrSubscriptionCreation), errors.Is(err, backend.ErrCircuitOpen):
		return http.StatusBadGateway
	case errors.As(err, &ge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var ce *checkout.Error
	var ge *checkout.GatewayError
	if errors.As(err, &ce) || errors.As(err, &ge) {
		return checkout.UserMessage(err)
	}
	if errors.Is(err, checkout.ErrNoPlanSelected) {
		return checkout.MsgNoPlanSelected
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return v.Error()
		}
	}
	return checkout.MsgUnexpected
}

func isValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
