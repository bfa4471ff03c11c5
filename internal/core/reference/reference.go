// Package reference produces order numbers and payment references.
package reference

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

const (
	DefaultOrderPrefix = "ST"
	PaymentPrefix      = "PAY_"

	// MaxAttempts bounds insert retries on a unique-key collision.
	MaxAttempts = 5

	dateLayout = "20060102"
)

type Generator struct {
	orderPrefix string
	now         func() time.Time
	intN        func(n int) int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithRandom(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

func NewGenerator(orderPrefix string, opts ...Option) *Generator {
	if orderPrefix == "" {
		orderPrefix = DefaultOrderPrefix
	}
	g := &Generator{
		orderPrefix: orderPrefix,
		now:         time.Now,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OrderNumber returns <prefix><YYYYMMDD><NNNN>.
func (g *Generator) OrderNumber() string {
	return fmt.Sprintf("%s%s%04d", g.orderPrefix, g.now().Format(dateLayout), g.suffix())
}

// PaymentReference returns PAY_<YYYYMMDD>_<orderNumber>_<NNNN>.
func (g *Generator) PaymentReference(orderNumber string) string {
	return fmt.Sprintf("%s%s_%s_%04d", PaymentPrefix, g.now().Format(dateLayout), orderNumber, g.suffix())
}

func (g *Generator) suffix() int {
	return 1000 + g.intN(9000)
}

// Insert runs insertFn with fresh references until it stops reporting a
// unique-key conflict. Running out of attempts means the random source is
// degenerate and is reported as domain.ErrDuplicateReference.
func Insert[T any](attempts int, next func() string, insertFn func(ref string) (T, error)) (T, error) {
	var zero T
	var lastRef string
	for i := 0; i < attempts; i++ {
		lastRef = next()
		result, err := insertFn(lastRef)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrConflictingData) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%w: %d collisions, last %s", domain.ErrDuplicateReference, attempts, lastRef)
}
