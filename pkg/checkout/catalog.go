package checkout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Interval is the billing frequency of a plan.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalAnnual  Interval = "annual"
)

// Plan is a fixed-price billing tier. ID doubles as the price ID sent to the backend.
type Plan struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Amount   int64    `yaml:"amount" json:"amount"` // smallest currency unit
	Currency string   `yaml:"currency" json:"currency"`
	Interval Interval `yaml:"interval" json:"interval"`
}

// FormattedAmount renders the plan price for display, e.g. "$ 5.00".
func (p Plan) FormattedAmount() string {
	s, err := FormatAmount(p.Amount, p.Currency)
	if err != nil {
		return fmt.Sprintf("%d %s", p.Amount, p.Currency)
	}
	return s
}

// Catalog is an immutable, ordered set of plans.
type Catalog struct {
	plans map[string]Plan
	order []string
}

// NewCatalog validates plans and builds a catalog preserving their order.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("at least one plan is required"))
	}

	c := &Catalog{
		plans: make(map[string]Plan, len(plans)),
		order: make([]string, 0, len(plans)),
	}
	for _, p := range plans {
		if err := validatePlan(p); err != nil {
			return nil, errors.Join(ErrInvalidCatalog, err)
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan ID %q", p.ID))
		}
		p.Currency = strings.ToUpper(p.Currency)
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// DefaultCatalog is the demo storefront's two-tier catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Plan{ID: "basic", Name: "Basic", Amount: 500, Currency: "USD", Interval: IntervalMonthly},
		Plan{ID: "premium", Name: "Premium", Amount: 1500, Currency: "USD", Interval: IntervalMonthly},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML document with a top-level "plans" list.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	return NewCatalog(doc.Plans...)
}

// LoadCatalogFile is LoadCatalog for a file path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Get returns the plan with the given ID.
func (c *Catalog) Get(id string) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Plans returns the plans in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

func validatePlan(p Plan) error {
	if p.ID == "" {
		return errors.New("plan ID is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("plan %s has non-positive amount %d", p.ID, p.Amount)
	}
	if _, err := currency.ParseISO(p.Currency); err != nil {
		return fmt.Errorf("plan %s has invalid currency %q: %w", p.ID, p.Currency, err)
	}
	switch p.Interval {
	case IntervalMonthly, IntervalAnnual:
	default:
		return fmt.Errorf("plan %s has unknown interval %q", p.ID, p.Interval)
	}
	return nil
}

var displayPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders an amount in minor units with its currency symbol.
// Zero-decimal currencies (JPY, KRW, ...) are not divided.
func FormatAmount(amount int64, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", err
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(amount) / math.Pow10(scale)
	return displayPrinter.Sprint(currency.Symbol(unit.Amount(value))), nil
}
