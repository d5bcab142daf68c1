package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Order numbers are persisted as ORD-YYYYMM-NNNNNN, e.g. ORD-202405-000001.
// The sequence is monthly and starts at 1.

var orderNumberPattern = regexp.MustCompile(`^ORD-(\d{6})-(\d{6})$`)

// PeriodKey returns the YYYYMM segment for t.
func PeriodKey(t time.Time) string {
	return t.Format("200601")
}

// FormatOrderNumber renders a period and sequence as an order number.
func FormatOrderNumber(period string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", period, seq)
}

// ParseOrderNumber splits an order number into its period and sequence.
func ParseOrderNumber(orderNumber string) (period string, seq int64, err error) {
	m := orderNumberPattern.FindStringSubmatch(orderNumber)
	if m == nil {
		return "", 0, fmt.Errorf("malformed order number %q", orderNumber)
	}
	seq, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse sequence of %q: %w", orderNumber, err)
	}
	return m[1], seq, nil
}

// nextOrderNumber claims the next sequence for the current period via an
// atomically upserted counter row. The row lock serializes concurrent
// creators within a period; an aborted create rolls the increment back, so
// sequences stay gap-free. The unique index on orders.order_number remains
// as a backstop.
func nextOrderNumber(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	period := PeriodKey(now)

	var seq int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_counters (period, seq)
		 VALUES ($1, 1)
		 ON CONFLICT (period) DO UPDATE
		 SET seq = order_counters.seq + 1
		 RETURNING seq`,
		period).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("increment order counter: %w", err)
	}

	return FormatOrderNumber(period, seq), nil
}
