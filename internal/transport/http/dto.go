package http

import (
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

type itemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

type groupInputDTO struct {
	ShopID        string    `json:"shop_id"`
	DiscountCodes []string  `json:"shop_discounts"`
	Items         []itemDTO `json:"item_products"`
}

type shippingDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type paymentDTO struct {
	Method   string `json:"method"`
	Provider string `json:"provider"`
}

type totalsDTO struct {
	TotalPrice    int64 `json:"totalPrice"`
	FeeShip       int64 `json:"feeShip"`
	TotalDiscount int64 `json:"totalDiscount"`
	TotalCheckout int64 `json:"totalCheckout"`
}

type appliedDiscountDTO struct {
	ShopID string `json:"shop_id"`
	Code   string `json:"code"`
}

type groupDTO struct {
	ShopID       string               `json:"shop_id"`
	Discounts    []appliedDiscountDTO `json:"shop_discounts"`
	PriceRaw     int64                `json:"priceRaw"`
	PriceApplied int64                `json:"priceApplied"`
	Items        []itemDTO            `json:"item_products"`
}

type reviewResponseDTO struct {
	Groups []groupDTO `json:"shop_order_ids_new"`
	Totals totalsDTO  `json:"checkout_order"`
}

type orderResponseDTO struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Checkout       totalsDTO  `json:"checkout"`
	Groups         []groupDTO `json:"products"`
	TrackingNumber string     `json:"trackingNumber"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type timelineEventDTO struct {
	OrderID    string    `json:"order_id"`
	Kind       string    `json:"kind"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toGroupInputs(groups []groupInputDTO) []checkout.GroupInput {
	out := make([]checkout.GroupInput, 0, len(groups))
	for _, g := range groups {
		items := make([]checkout.ItemInput, 0, len(g.Items))
		for _, item := range g.Items {
			items = append(items, checkout.ItemInput{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				PriceMinor: item.Price,
			})
		}
		out = append(out, checkout.GroupInput{
			ShopID:        g.ShopID,
			DiscountCodes: g.DiscountCodes,
			Items:         items,
		})
	}
	return out
}

func toTotalsDTO(totals domain.CheckoutTotals) totalsDTO {
	return totalsDTO{
		TotalPrice:    totals.TotalPriceMinor,
		FeeShip:       totals.FeeShipMinor,
		TotalDiscount: totals.TotalDiscountMinor,
		TotalCheckout: totals.TotalCheckoutMinor,
	}
}

func toGroupDTOs(groups []domain.OrderGroup) []groupDTO {
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		items := make([]itemDTO, 0, len(g.Items))
		for _, item := range g.Items {
			items = append(items, itemDTO{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.PriceMinor,
			})
		}
		discounts := make([]appliedDiscountDTO, 0, len(g.Discounts))
		for _, d := range g.Discounts {
			discounts = append(discounts, appliedDiscountDTO{ShopID: d.ShopID, Code: d.Code})
		}
		out = append(out, groupDTO{
			ShopID:       g.ShopID,
			Discounts:    discounts,
			PriceRaw:     g.PriceRawMinor,
			PriceApplied: g.PriceAppliedMinor,
			Items:        items,
		})
	}
	return out
}

func toOrderResponse(order domain.Order) orderResponseDTO {
	return orderResponseDTO{
		ID:             order.ID,
		UserID:         order.UserID,
		Checkout:       toTotalsDTO(order.Checkout),
		Groups:         toGroupDTOs(order.Groups),
		TrackingNumber: order.TrackingNumber,
		Status:         string(order.Status),
		CreatedAt:      order.CreatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponseDTO {
	out := make([]orderResponseDTO, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	return out
}
