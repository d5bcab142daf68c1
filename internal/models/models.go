package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	VariantTypeSize   = "size"
	VariantTypeColor  = "color"
	VariantTypeWeight = "weight"
)

// PrimaryVariantItem is one sellable option of a product's controlling
// dimension. Price and stock live here, not on the product.
type PrimaryVariantItem struct {
	Value        string          `json:"value"`
	Price        decimal.Decimal `json:"price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
}

// SecondaryVariants are display-only dimensions with no price or stock.
type SecondaryVariants struct {
	Size   []string `json:"size,omitempty"`
	Color  []string `json:"color,omitempty"`
	Weight []string `json:"weight,omitempty"`
}

type Product struct {
	ID                 int64                `json:"id"`
	Name               string               `json:"name"`
	Slug               string               `json:"slug"`
	Description        string               `json:"description,omitempty"`
	Category           string               `json:"category"`
	Tags               pq.StringArray       `json:"tags"`
	Images             pq.StringArray       `json:"images"`
	PrimaryVariantType string               `json:"primary_variant_type"`
	PrimaryVariants    []PrimaryVariantItem `json:"primary_variants"`
	SecondaryVariants  *SecondaryVariants   `json:"secondary_variants,omitempty"`
	SalesCount         int                  `json:"sales_count"`
	TotalReviews       int                  `json:"total_reviews"`
	AverageRatings     float64              `json:"average_ratings"`
	IsDeleted          bool                 `json:"is_deleted"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	Version            int                  `json:"version"`
}

type CustomerInfo struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	FullAddress string `json:"full_address"`
	Country     string `json:"country"`
	OrderNotes  string `json:"order_notes,omitempty"`
}

const (
	ShippingDomesticCapital = "domestic-capital"
	ShippingOutside         = "outside"
)

const (
	PaymentMethodBkash = "bkash"
	PaymentMethodNagad = "nagad"
)

// PaymentDetails are stored as submitted; no gateway verification happens.
type PaymentDetails struct {
	Method        string `json:"method"`
	Phone         string `json:"phone"`
	TransactionID string `json:"transaction_id"`
}

// PrimarySelection names the variant item an order line was placed against,
// with a price/stock snapshot taken at order time.
type PrimarySelection struct {
	Type         string           `json:"type"`
	Value        string           `json:"value"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
}

// SecondarySelection is a display-only choice on an order line.
type SecondarySelection struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type OrderItem struct {
	OrderID             int64                `json:"order_id"`
	Position            int                  `json:"position"`
	ProductID           int64                `json:"product_id"`
	Quantity            int                  `json:"quantity"`
	PrimarySelection    PrimarySelection     `json:"primary_selection"`
	SecondarySelections []SecondarySelection `json:"secondary_selections,omitempty"`
	UnitPrice           decimal.Decimal      `json:"unit_price"`
	UnitSellingPrice    decimal.Decimal      `json:"unit_selling_price"`
	LineTotal           decimal.Decimal      `json:"line_total"`
	Product             *Product             `json:"product,omitempty"`
}

type Order struct {
	ID                int64           `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerInfo      CustomerInfo    `json:"customer_info"`
	ShippingOption    string          `json:"shipping_option"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Items             []OrderItem     `json:"items,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Total             decimal.Decimal `json:"total"`
	PaymentDetails    PaymentDetails  `json:"payment_details"`
	Status            string          `json:"status"`
	InventoryReleased bool            `json:"inventory_released"`
	IsDeleted         bool            `json:"is_deleted"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func ValidShippingOption(s string) bool {
	return s == ShippingDomesticCapital || s == ShippingOutside
}

func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodBkash || m == PaymentMethodNagad
}

func ValidVariantType(t string) bool {
	return t == VariantTypeSize || t == VariantTypeColor || t == VariantTypeWeight
}

type Blog struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Content     string         `json:"content"`
	Author      string         `json:"author"`
	Tags        pq.StringArray `json:"tags"`
	IsPublished bool           `json:"is_published"`
	IsDeleted   bool           `json:"is_deleted"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
