package checkout

import (
	"context"
	"strconv"
)

// KeyValue is the string key-value persistence used for checkout state.
// Implementations must apply SetMany as a single write and treat missing keys as absent.
type KeyValue interface {
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// PendingStore holds at most one pending subscription per checkout session.
type PendingStore interface {
	// Read returns false when nothing is cached or the cached record is partial.
	Read(ctx context.Context) (PendingSubscription, bool, error)
	Write(ctx context.Context, p PendingSubscription) error
	// Clear removes every key of the pending subscription.
	Clear(ctx context.Context) error
}

// PlanStore persists the customer's plan selection.
type PlanStore interface {
	Selected(ctx context.Context) (string, bool, error)
	Select(ctx context.Context, priceID string) error
	Clear(ctx context.Context) error
}

// Persisted keys. Plan selection lives in its own store so clearing the
// pending subscription never wipes it.
const (
	KeySubscriptionID   = "incompleteSubscriptionId"
	KeyCurrentPeriodEnd = "currentPeriodEnd"
	KeyClientSecret     = "clientSecret"
	KeyPriceID          = "incompleteSubscriptionPriceId"
	KeySelectedPriceID  = "priceId"
)

var pendingKeys = []string{KeySubscriptionID, KeyCurrentPeriodEnd, KeyClientSecret, KeyPriceID}

type kvPendingStore struct {
	kv KeyValue
}

// NewPendingStore returns a PendingStore backed by kv.
func NewPendingStore(kv KeyValue) PendingStore {
	if kv == nil {
		panic("checkout: KeyValue is required")
	}
	return &kvPendingStore{kv: kv}
}

func (s *kvPendingStore) Read(ctx context.Context) (PendingSubscription, bool, error) {
	values, err := s.kv.GetMany(ctx, pendingKeys...)
	if err != nil {
		return PendingSubscription{}, false, err
	}

	periodEnd, err := strconv.ParseInt(values[KeyCurrentPeriodEnd], 10, 64)
	if err != nil {
		// Missing or garbled period end is a partial record.
		return PendingSubscription{}, false, nil
	}

	p := PendingSubscription{
		SubscriptionID:   values[KeySubscriptionID],
		PriceID:          values[KeyPriceID],
		ClientSecret:     values[KeyClientSecret],
		CurrentPeriodEnd: periodEnd,
	}
	if !p.Complete() {
		return PendingSubscription{}, false, nil
	}
	return p, true, nil
}

func (s *kvPendingStore) Write(ctx context.Context, p PendingSubscription) error {
	return s.kv.SetMany(ctx, map[string]string{
		KeySubscriptionID:   p.SubscriptionID,
		KeyCurrentPeriodEnd: strconv.FormatInt(p.CurrentPeriodEnd, 10),
		KeyClientSecret:     p.ClientSecret,
		KeyPriceID:          p.PriceID,
	})
}

func (s *kvPendingStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, pendingKeys...)
}

type kvPlanStore struct {
	kv KeyValue
}

// NewPlanStore returns a PlanStore backed by kv.
func NewPlanStore(kv KeyValue) PlanStore {
	if kv == nil {
		panic("checkout: KeyValue is required")
	}
	return &kvPlanStore{kv: kv}
}

func (s *kvPlanStore) Selected(ctx context.Context) (string, bool, error) {
	values, err := s.kv.GetMany(ctx, KeySelectedPriceID)
	if err != nil {
		return "", false, err
	}
	id, ok := values[KeySelectedPriceID]
	return id, ok && id != "", nil
}

func (s *kvPlanStore) Select(ctx context.Context, priceID string) error {
	return s.kv.SetMany(ctx, map[string]string{KeySelectedPriceID: priceID})
}

func (s *kvPlanStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeySelectedPriceID)
}

type prefixedKV struct {
	prefix string
	next   KeyValue
}

// Prefixed scopes every key of kv under prefix.
func Prefixed(kv KeyValue, prefix string) KeyValue {
	if prefix == "" {
		return kv
	}
	return &prefixedKV{prefix: prefix, next: kv}
}

func (p *prefixedKV) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	values, err := p.next.GetMany(ctx, p.keys(keys)...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(values))
	for _, k := range keys {
		if v, ok := values[p.prefix+k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (p *prefixedKV) SetMany(ctx context.Context, values map[string]string) error {
	prefixed := make(map[string]string, len(values))
	for k, v := range values {
		prefixed[p.prefix+k] = v
	}
	return p.next.SetMany(ctx, prefixed)
}

func (p *prefixedKV) Delete(ctx context.Context, keys ...string) error {
	return p.next.Delete(ctx, p.keys(keys)...)
}

func (p *prefixedKV) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = p.prefix + k
	}
	return out
}
