package domain

import "time"

// DiscountType определяет способ расчёта суммы скидки.
type DiscountType string

const (
	// DiscountTypeFixedAmount — фиксированная сумма в минорных единицах.
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	// DiscountTypePercentage — процент от суммы позиций.
	DiscountTypePercentage DiscountType = "percentage"
)

// Discount описывает код скидки магазина.
type Discount struct {
	ID          string
	ShopID      string
	Code        string
	Name        string
	Description string
	Type        DiscountType
	// Value — сумма в минорных единицах для fixed_amount либо процент для percentage.
	Value     int64
	IsActive  bool
	StartDate time.Time
	EndDate   time.Time
	// MaxUses — оставшийся лимит применений; 0 означает исчерпание.
	MaxUses        int64
	UsesCount      int64
	UsersUsed      []string
	MaxUsesPerUser int64
	// MinOrderValueMinor — минимальная сумма позиций для применения кода.
	MinOrderValueMinor int64
	// AppliesTo — "all" либо "specific" (ограничение по ProductIDs).
	AppliesTo  string
	ProductIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DiscountAmount — результат расчёта скидки для набора позиций.
type DiscountAmount struct {
	// TotalOrderMinor — сумма позиций, на которую считалась скидка.
	TotalOrderMinor int64
	// DiscountMinor — вычисленная сумма скидки.
	DiscountMinor int64
	// TotalPriceMinor — сумма к оплате после скидки.
	TotalPriceMinor int64
}
