package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

func (s OrderStatus) String() string {
	return string(s)
}

type ShippingAddress struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	Governorate string `json:"governorate"`
	PostalCode  string `json:"postalCode,omitempty"`
}

type OrderItem struct {
	ProductID string `json:"product"`
	SizeID    string `json:"sizeId"`
	Qty       int    `json:"qty"`
}

// OrderRequest is the payload sent to the order backend on checkout.
type OrderRequest struct {
	UserName        string          `json:"userName"`
	UserPhone       string          `json:"userPhone"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Items           []OrderItem     `json:"items"`
	Notes           string          `json:"notes,omitempty"`
	DeliveryAt      string          `json:"delivery_at,omitempty"`
}

// OrderItemsFromCart maps each line item to {product, sizeId, qty}.
func OrderItemsFromCart(items []LineItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItem{
			ProductID: item.Product.ID,
			SizeID:    item.Size.ID,
			Qty:       item.Quantity,
		})
	}
	return out
}

// TrackedOrder is what the backend returns for a tracking lookup.
type TrackedOrder struct {
	ID              string          `json:"_id"`
	TrackingCode    string          `json:"trackingCode"`
	Status          OrderStatus     `json:"status"`
	UserName        string          `json:"userName"`
	UserPhone       string          `json:"userPhone"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	DeliveryAt      *time.Time      `json:"delivery_at,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
