// Package invoicing is the typed layer over the backend's invoicing resources.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"invoice-console/internal/dataprovider"
)

var ErrInvalidArgument = errors.New("invoicing: invalid argument")

// Resource is typed CRUD over one simple-REST collection.
type Resource[T any] struct {
	dp   *dataprovider.Provider
	name string
}

func NewResource[T any](dp *dataprovider.Provider, name string) Resource[T] {
	return Resource[T]{dp: dp, name: name}
}

func (r Resource[T]) Name() string { return r.name }

func (r Resource[T]) List(ctx context.Context, p dataprovider.ListParams) ([]T, int, error) {
	var out []T
	total, err := r.dp.GetList(ctx, r.name, p, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// All fetches the whole collection without pagination.
func (r Resource[T]) All(ctx context.Context) ([]T, error) {
	out, _, err := r.List(ctx, dataprovider.ListParams{Pagination: dataprovider.Pagination{Off: true}})
	return out, err
}

func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if id == "" {
		return out, fmt.Errorf("%w: %s id is required", ErrInvalidArgument, r.name)
	}
	err := r.dp.GetOne(ctx, r.name, id, &out)
	return out, err
}

func (r Resource[T]) Many(ctx context.Context, ids []string) ([]T, error) {
	var out []T
	if len(ids) == 0 {
		return out, nil
	}
	err := r.dp.GetMany(ctx, r.name, ids, &out)
	return out, err
}

func (r Resource[T]) Create(ctx context.Context, v T) (T, error) {
	var out T
	err := r.dp.Create(ctx, r.name, v, &out)
	return out, err
}

func (r Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var out T
	if id == "" {
		return out, fmt.Errorf("%w: %s id is required", ErrInvalidArgument, r.name)
	}
	err := r.dp.Update(ctx, r.name, id, v, &out)
	return out, err
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidArgument, r.name)
	}
	return r.dp.Delete(ctx, r.name, id, nil)
}

// Service groups the invoicing resources.
type Service struct {
	dp *dataprovider.Provider

	Clients        Resource[Client]
	Companies      Resource[Company]
	Products       Resource[Product]
	PaymentMethods Resource[PaymentMethod]
	Invoices       Resource[Invoice]

	log *slog.Logger
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(dp *dataprovider.Provider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		dp:             dp,
		Clients:        NewResource[Client](dp, ResourceClients),
		Companies:      NewResource[Company](dp, ResourceCompany),
		Products:       NewResource[Product](dp, ResourceProduct),
		PaymentMethods: NewResource[PaymentMethod](dp, ResourcePaymentMethod),
		Invoices:       NewResource[Invoice](dp, ResourceInvoice),
		log:            log,
		clock:          time.Now,
	}
}

// Provider exposes the underlying data provider for resources without a typed model.
func (s *Service) Provider() *dataprovider.Provider { return s.dp }
