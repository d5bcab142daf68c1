package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rakib/go-commerce-store/internal/database"
	"github.com/rakib/go-commerce-store/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerInfo   models.CustomerInfo
	ShippingOption string
	ShippingCost   decimal.Decimal
	Items          []OrderItemRequest
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	PaymentDetails models.PaymentDetails
}

type OrderItemRequest struct {
	ProductID           int64
	Quantity            int
	PrimaryType         string
	PrimaryValue        string
	SecondarySelections []models.SecondarySelection
	UnitPrice           decimal.Decimal
	UnitSellingPrice    decimal.Decimal
	LineTotal           decimal.Decimal
}

type UpdateOrderRequest struct {
	Status       *string
	CustomerInfo *models.CustomerInfo
}

const orderColumns = `id, order_number, customer_full_name, customer_phone,
	customer_address, customer_country, customer_notes, shipping_option,
	shipping_cost, subtotal, total, payment_method, payment_phone,
	payment_transaction_id, status, inventory_released, is_deleted,
	created_at, updated_at, version`

// CreateOrder generates the monthly order number, reserves stock for every
// line item and inserts the order, all inside one serializable transaction.
// Any failure rolls the whole thing back; there is no partial order and no
// partial stock change.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("create order: at least one item is required")
	}
	if !models.ValidShippingOption(req.ShippingOption) {
		return nil, fmt.Errorf("create order: unknown shipping option %q", req.ShippingOption)
	}
	if !models.ValidPaymentMethod(req.PaymentDetails.Method) {
		return nil, fmt.Errorf("create order: unknown payment method %q", req.PaymentDetails.Method)
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		orderNumber, err := nextOrderNumber(ctx, tx, time.Now())
		if err != nil {
			return err
		}

		// Reservations apply in payload order. The first failure aborts
		// the transaction and undoes every earlier decrement.
		snapshots := make([]*VariantSnapshot, len(req.Items))
		for i, item := range req.Items {
			snap, err := ReserveStock(ctx, tx, item.ProductID, item.PrimaryValue, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve item %d (product %d, %s=%s): %w",
					i, item.ProductID, item.PrimaryType, item.PrimaryValue, err)
			}
			snapshots[i] = snap
		}

		order = &models.Order{
			OrderNumber:    orderNumber,
			CustomerInfo:   req.CustomerInfo,
			ShippingOption: req.ShippingOption,
			ShippingCost:   req.ShippingCost,
			Subtotal:       req.Subtotal,
			Total:          req.Total,
			PaymentDetails: req.PaymentDetails,
			Status:         models.OrderStatusPending,
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, customer_full_name, customer_phone,
			     customer_address, customer_country, customer_notes,
			     shipping_option, shipping_cost, subtotal, total,
			     payment_method, payment_phone, payment_transaction_id,
			     status, inventory_released, is_deleted, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			     FALSE, FALSE, NOW(), NOW(), 1)
			 RETURNING id, created_at, updated_at, version`,
			orderNumber,
			req.CustomerInfo.FullName,
			req.CustomerInfo.Phone,
			req.CustomerInfo.FullAddress,
			req.CustomerInfo.Country,
			req.CustomerInfo.OrderNotes,
			req.ShippingOption,
			req.ShippingCost,
			req.Subtotal,
			req.Total,
			req.PaymentDetails.Method,
			req.PaymentDetails.Phone,
			req.PaymentDetails.TransactionID,
			models.OrderStatusPending,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
		if err != nil {
			if database.IsUniqueViolation(err, "orders_order_number_key") {
				// Keep the driver error in the chain so the conflict
				// classifies as retryable and the number is recomputed.
				return fmt.Errorf("%w %s: %w", database.ErrOrderNumberConflict, orderNumber, err)
			}
			return fmt.Errorf("create order: %w", err)
		}

		for i, item := range req.Items {
			snap := snapshots[i]
			orderItem := models.OrderItem{
				OrderID:   order.ID,
				Position:  i,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				PrimarySelection: models.PrimarySelection{
					Type:         item.PrimaryType,
					Value:        item.PrimaryValue,
					Price:        &snap.Price,
					SellingPrice: &snap.SellingPrice,
					Stock:        &snap.Stock,
				},
				SecondarySelections: item.SecondarySelections,
				UnitPrice:           item.UnitPrice,
				UnitSellingPrice:    item.UnitSellingPrice,
				LineTotal:           item.LineTotal,
			}

			if err := insertOrderItem(ctx, tx, &orderItem); err != nil {
				return err
			}
			order.Items = append(order.Items, orderItem)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func insertOrderItem(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	secondary, err := marshalSecondary(item.SecondarySelections)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, position, product_id, quantity,
		     primary_type, primary_value, primary_price, primary_selling_price,
		     primary_stock, secondary_selections, unit_price, unit_selling_price,
		     line_total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())`,
		item.OrderID,
		item.Position,
		item.ProductID,
		item.Quantity,
		item.PrimarySelection.Type,
		item.PrimarySelection.Value,
		item.PrimarySelection.Price,
		item.PrimarySelection.SellingPrice,
		item.PrimarySelection.Stock,
		secondary,
		item.UnitPrice,
		item.UnitSellingPrice,
		item.LineTotal)
	if err != nil {
		return fmt.Errorf("create order item %d: %w", item.Position, err)
	}

	return nil
}

func marshalSecondary(selections []models.SecondarySelection) ([]byte, error) {
	if len(selections) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(selections)
	if err != nil {
		return nil, fmt.Errorf("marshal secondary selections: %w", err)
	}
	return data, nil
}

// GetOrder returns a non-deleted order with its items and their products.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND is_deleted = FALSE`, id)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := loadOrderItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	if err := populateProducts(ctx, db, order.Items); err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateOrder applies a status and/or customer-info patch. Moving to
// cancelled releases the reserved inventory exactly once; re-cancelling an
// already-cancelled order is rejected. Items and amounts are immutable.
func UpdateOrder(ctx context.Context, db *sql.DB, id int64, req UpdateOrderRequest) (*models.Order, error) {
	if req.Status != nil && !models.ValidOrderStatus(*req.Status) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, *req.Status)
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		existing, err := getOrderForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.Status != nil && *req.Status == models.OrderStatusCancelled {
			if existing.Status == models.OrderStatusCancelled {
				return database.ErrOrderAlreadyCancelled
			}
			if err := releaseOrderInventory(ctx, tx, existing); err != nil {
				return err
			}
		}

		status := existing.Status
		if req.Status != nil {
			status = *req.Status
		}
		info := existing.CustomerInfo
		if req.CustomerInfo != nil {
			info = *req.CustomerInfo
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1,
			     customer_full_name = $2,
			     customer_phone = $3,
			     customer_address = $4,
			     customer_country = $5,
			     customer_notes = $6,
			     updated_at = NOW(),
			     version = version + 1
			 WHERE id = $7`,
			status, info.FullName, info.Phone, info.FullAddress,
			info.Country, info.OrderNotes, id)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		order, err = getOrderForUpdate(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	items, err := loadOrderItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// DeleteOrder soft-deletes an order and releases its inventory if that has
// not happened yet. A deleted order disappears from every lookup.
func DeleteOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		existing, err := getOrderForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := releaseOrderInventory(ctx, tx, existing); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET is_deleted = TRUE, updated_at = NOW(), version = version + 1
			 WHERE id = $1`,
			id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		existing.IsDeleted = true
		existing.InventoryReleased = true
		order = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := loadOrderItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// releaseOrderInventory restores stock and sales count for every item of
// the order, at most once per order: the persisted inventory_released flag
// guards against a cancel followed by a delete double-incrementing stock.
func releaseOrderInventory(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	if order.InventoryReleased {
		return nil
	}

	items, err := loadOrderItems(ctx, tx, []int64{order.ID})
	if err != nil {
		return err
	}

	for _, item := range items[order.ID] {
		err := ReleaseStock(ctx, tx, item.ProductID, item.PrimarySelection.Value, item.Quantity)
		if err != nil {
			return fmt.Errorf("release item %d (product %d, %s=%s): %w",
				item.Position, item.ProductID,
				item.PrimarySelection.Type, item.PrimarySelection.Value, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET inventory_released = TRUE WHERE id = $1`, order.ID)
	if err != nil {
		return fmt.Errorf("mark inventory released: %w", err)
	}

	order.InventoryReleased = true
	return nil
}

func getOrderForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE id = $1 AND is_deleted = FALSE
		 FOR UPDATE`, id)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

// ListOrdersCursor pages through non-deleted orders, newest first, items
// and product references populated.
func ListOrdersCursor(ctx context.Context, db *sql.DB, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE is_deleted = FALSE
		   AND (created_at, id) < ($1, $2)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	itemsByOrder, err := loadOrderItems(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
		if err := populateProducts(ctx, db, orders[i].Items); err != nil {
			return nil, err
		}
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerInfo.FullName,
		&order.CustomerInfo.Phone,
		&order.CustomerInfo.FullAddress,
		&order.CustomerInfo.Country,
		&order.CustomerInfo.OrderNotes,
		&order.ShippingOption,
		&order.ShippingCost,
		&order.Subtotal,
		&order.Total,
		&order.PaymentDetails.Method,
		&order.PaymentDetails.Phone,
		&order.PaymentDetails.TransactionID,
		&order.Status,
		&order.InventoryReleased,
		&order.IsDeleted,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadOrderItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	itemsByOrder := make(map[int64][]models.OrderItem)
	if len(orderIDs) == 0 {
		return itemsByOrder, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT order_id, position, product_id, quantity, primary_type,
		     primary_value, primary_price, primary_selling_price, primary_stock,
		     secondary_selections, unit_price, unit_selling_price, line_total
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var secondary []byte
		var price, sellingPrice decimal.NullDecimal
		var stock sql.NullInt64
		err := rows.Scan(
			&item.OrderID,
			&item.Position,
			&item.ProductID,
			&item.Quantity,
			&item.PrimarySelection.Type,
			&item.PrimarySelection.Value,
			&price,
			&sellingPrice,
			&stock,
			&secondary,
			&item.UnitPrice,
			&item.UnitSellingPrice,
			&item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if price.Valid {
			item.PrimarySelection.Price = &price.Decimal
		}
		if sellingPrice.Valid {
			item.PrimarySelection.SellingPrice = &sellingPrice.Decimal
		}
		if stock.Valid {
			s := int(stock.Int64)
			item.PrimarySelection.Stock = &s
		}
		if len(secondary) > 0 {
			if err := json.Unmarshal(secondary, &item.SecondarySelections); err != nil {
				return nil, fmt.Errorf("unmarshal secondary selections: %w", err)
			}
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return itemsByOrder, nil
}

func populateProducts(ctx context.Context, db *sql.DB, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool)
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := getProductsByIDs(ctx, db, ids)
	if err != nil {
		return err
	}

	for i := range items {
		if p, ok := products[items[i].ProductID]; ok {
			items[i].Product = p
		}
	}

	return nil
}
