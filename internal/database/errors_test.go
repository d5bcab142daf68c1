package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization failure", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505", Constraint: "products_slug_key"}, ErrorClassPermanent},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"plain error", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), tc.name)
	}
}

func TestClassifyErrorOrderNumberConflictIsRetryable(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}
	assert.Equal(t, ErrorClassSerialization, ClassifyError(err))
	assert.True(t, IsRetryable(err))

	// Wrapped errors classify the same way.
	wrapped := fmt.Errorf("create order: %w", err)
	assert.True(t, IsRetryable(wrapped))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "blogs_slug_key"}
	assert.True(t, IsUniqueViolation(err, "blogs_slug_key"))
	assert.False(t, IsUniqueViolation(err, "products_slug_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), "blogs_slug_key"))
}
