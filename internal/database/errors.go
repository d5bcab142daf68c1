package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

// orderNumberUniqueConstraint is the backstop index on orders.order_number.
// A violation means two creators raced the same period sequence; the create
// is retried with a recomputed number, so it is classified retryable.
const orderNumberUniqueConstraint = "orders_order_number_key"

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505":
			if pqErr.Constraint == orderNumberUniqueConstraint {
				return ErrorClassSerialization
			}
			return ErrorClassPermanent
		case "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrVariantNotFound       = errors.New("variant not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrBlogNotFound          = errors.New("blog not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	ErrOrderNumberConflict   = errors.New("order number conflict")
	ErrSlugConflict          = errors.New("slug already in use")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrLockTimeout           = errors.New("lock timeout")
)
