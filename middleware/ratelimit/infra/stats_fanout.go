package infra

import (
	"context"
	"errors"

	"checkout-gateway/middleware/ratelimit/domain"
)

type fanoutStats []domain.StatsStore

// NewFanoutStatsStore repassa cada evento para todos os stores não-nil.
// Um store com erro não impede os outros; os erros voltam juntos.
func NewFanoutStatsStore(stores ...domain.StatsStore) domain.StatsStore {
	out := make(fanoutStats, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanoutStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
