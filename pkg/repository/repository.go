package repository

import (
	"context"

	"resource-ledger/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is the generic gorm store used by the services. Query structs
// follow gorm semantics: zero-valued fields are ignored.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil without error when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	// Update applies values to the row with the given id and reports the
	// number of rows touched.
	Update(ctx context.Context, resourceID string, values any, opts ...option.QueryOption) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) model(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T))
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var out []*T
	q := s.model(ctx)
	if query != nil {
		q = q.Where(query)
	}
	if err := option.Apply(q, opts...).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var out T
	q := s.model(ctx)
	if query != nil {
		q = q.Where(query)
	}
	res := option.Apply(q, opts...).Limit(1).Find(&out)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &out, nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *store[T]) Update(ctx context.Context, resourceID string, values any, opts ...option.QueryOption) (int64, error) {
	q := option.Apply(s.model(ctx).Where("id = ?", resourceID), opts...)
	res := q.Updates(values)
	return res.RowsAffected, res.Error
}

func (s *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var total int64
	q := s.model(ctx)
	if query != nil {
		q = q.Where(query)
	}
	err := option.Apply(q, opts...).Count(&total).Error
	return total, err
}
