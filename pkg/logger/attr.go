package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// CustomerID records the billing customer under the key "customer_id".
// Empty ids produce an empty Attr.
func CustomerID(id string) slog.Attr {
	return nonEmpty("customer_id", id)
}

// SubscriptionID records the subscription under the key "subscription_id".
func SubscriptionID(id string) slog.Attr {
	return nonEmpty("subscription_id", id)
}

// PriceID records the plan price under the key "price_id".
func PriceID(id string) slog.Attr {
	return nonEmpty("price_id", id)
}

// SessionID records the checkout session under the key "session_id".
func SessionID(id string) slog.Attr {
	return nonEmpty("session_id", id)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Stage records the payment pipeline stage under the key "stage".
func Stage(name string) slog.Attr {
	return slog.String("stage", name)
}

// IntentStatus records a payment intent status under the key "intent_status".
func IntentStatus(status string) slog.Attr {
	return nonEmpty("intent_status", status)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func nonEmpty(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
