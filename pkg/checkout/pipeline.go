package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Payment pipeline stage names, used in logs and metrics.
const (
	StageConfirm              = "confirm"
	StageRequireAction        = "require_action"
	StageRequirePaymentMethod = "require_payment_method"
	StageFinalize             = "finalize"
)

// CompletePayment confirms the payment intent behind clientSecret with the
// collected card and walks it to a terminal state:
//
//	Confirm -> RequireAction -> RequirePaymentMethod -> Finalize
//
// The first failing stage ends the run and its error, always an *Error, is returned.
// There is no retry; callers restart from Confirm with fresh input.
// An intent that still needs the customer's authentication ends the run with
// ErrActionRequired; see resumeAuthenticated.
func (s *service) CompletePayment(ctx context.Context, clientSecret string, input PaymentInput) (*PaymentIntent, error) {
	start := time.Now()
	defer func() { s.metrics.observePayment(time.Since(start)) }()

	intent, err := s.confirm(ctx, clientSecret, input)
	if err != nil {
		return nil, s.stageFailed(ctx, StageConfirm, err)
	}
	return s.settle(ctx, intent, input)
}

// resumeAuthenticated continues a payment paused with ErrActionRequired once
// the customer has answered the challenge in the browser:
//
//	RequireAction -> RequirePaymentMethod -> Finalize
func (s *service) resumeAuthenticated(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
	start := time.Now()
	defer func() { s.metrics.observePayment(time.Since(start)) }()

	if clientSecret == "" {
		return nil, s.stageFailed(ctx, StageRequireAction,
			newError(ErrGatewayConfirmation, MsgPaymentNotCompleted, ErrMissingSecret))
	}
	return s.settle(ctx, &PaymentIntent{Status: StatusRequiresAction, ClientSecret: clientSecret}, PaymentInput{})
}

// settle runs the stages that follow confirmation.
func (s *service) settle(ctx context.Context, intent *PaymentIntent, input PaymentInput) (*PaymentIntent, error) {
	intent, err := s.requireAction(ctx, intent)
	if err != nil {
		return nil, s.stageFailed(ctx, StageRequireAction, err)
	}

	intent, err = requirePaymentMethod(intent)
	if err != nil {
		return nil, s.stageFailed(ctx, StageRequirePaymentMethod, err)
	}

	intent, err = finalizeIntent(intent, input)
	if err != nil {
		return nil, s.stageFailed(ctx, StageFinalize, err)
	}
	return intent, nil
}

func (s *service) confirm(ctx context.Context, clientSecret string, input PaymentInput) (*PaymentIntent, error) {
	if clientSecret == "" {
		return nil, newError(ErrGatewayConfirmation, MsgPaymentNotCompleted, ErrMissingSecret)
	}
	if input.PaymentMethodID == "" {
		return nil, newError(ErrGatewayConfirmation, MsgPaymentNotCompleted, ErrMissingPaymentData)
	}

	intent, err := s.gateway.ConfirmPayment(ctx, clientSecret, input)
	if err != nil {
		return nil, asUserError(ErrCardDeclined, err)
	}
	if intent == nil {
		return nil, newError(ErrUnexpected, MsgUnexpected, errNoIntent)
	}
	if intent.ClientSecret == "" {
		intent.ClientSecret = clientSecret
	}
	return intent, nil
}

// requireAction runs the authentication step exactly once when the intent asks
// for it. An intent still waiting for the customer is handed back to the browser.
func (s *service) requireAction(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error) {
	if intent.Status != StatusRequiresAction {
		return intent, nil
	}

	updated, err := s.gateway.HandleRequiredAction(ctx, intent.ClientSecret)
	if err != nil {
		return nil, asUserError(ErrGatewayConfirmation, err)
	}
	if updated == nil {
		return nil, newError(ErrUnexpected, MsgUnexpected, errNoIntent)
	}
	if updated.Status == StatusRequiresAction {
		secret := updated.ClientSecret
		if secret == "" {
			secret = intent.ClientSecret
		}
		return nil, &Error{Kind: ErrActionRequired, Message: MsgActionRequired, ClientSecret: secret}
	}
	if updated.PaymentMethodID == "" {
		updated.PaymentMethodID = intent.PaymentMethodID
	}
	return updated, nil
}

func requirePaymentMethod(intent *PaymentIntent) (*PaymentIntent, error) {
	if intent.Status == StatusRequiresPaymentMethod {
		return nil, newError(ErrCardDeclined, MsgCardDeclined, nil)
	}
	return intent, nil
}

// finalizeIntent accepts only statuses that mean the charge went through or is
// settling. Anything else fails closed.
func finalizeIntent(intent *PaymentIntent, input PaymentInput) (*PaymentIntent, error) {
	switch intent.Status {
	case StatusSucceeded, StatusProcessing:
	default:
		return nil, newError(ErrGatewayConfirmation, MsgPaymentNotCompleted,
			fmt.Errorf("payment intent ended in status %q", intent.Status))
	}
	if intent.PaymentMethodID == "" {
		intent.PaymentMethodID = input.PaymentMethodID
	}
	return intent, nil
}

var errNoIntent = errors.New("gateway returned no payment intent")

func (s *service) stageFailed(ctx context.Context, stage string, err error) error {
	if errors.Is(err, ErrActionRequired) {
		s.log.InfoContext(ctx, "payment waits for customer authentication", logger.Stage(stage))
		return err
	}
	s.metrics.stageFailed(stage)
	s.log.WarnContext(ctx, "payment stage failed", logger.Stage(stage), logger.Error(err))
	return err
}
