package checkout_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storefront/pkg/checkout"
)

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"checkout error", &checkout.Error{Kind: checkout.ErrCardDeclined, Message: "Declined."}, "Declined."},
		{"wrapped checkout error", fmt.Errorf("submit: %w", &checkout.Error{Kind: checkout.ErrUnexpected, Message: "Oops."}), "Oops."},
		{"gateway error", &checkout.GatewayError{Message: "Expired card."}, "Expired card."},
		{"gateway error without message", &checkout.GatewayError{Code: "x"}, checkout.MsgUnexpected},
		{"plain error", errors.New("dial tcp: refused"), checkout.MsgUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, checkout.UserMessage(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := &checkout.GatewayError{Message: "Your card was declined.", Code: "card_declined", DeclineCode: "generic_decline"}
	err := &checkout.Error{Kind: checkout.ErrCardDeclined, Message: cause.Message, Err: cause}

	assert.ErrorIs(t, err, checkout.ErrCardDeclined)
	assert.NotErrorIs(t, err, checkout.ErrUnexpected)

	var ge *checkout.GatewayError
	assert.ErrorAs(t, err, &ge)
	assert.Equal(t, "generic_decline", ge.DeclineCode)

	assert.Contains(t, err.Error(), "card declined")
	assert.Contains(t, err.Error(), "card_declined")

	bare := &checkout.Error{Kind: checkout.ErrUnexpected, Message: checkout.MsgUnexpected}
	assert.ErrorIs(t, bare, checkout.ErrUnexpected)
	assert.Equal(t, "unexpected checkout error: "+checkout.MsgUnexpected, bare.Error())
}
