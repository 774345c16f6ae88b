package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ─── Redemption Catalog ─────────────────────────────────────────────────────
// Static configuration: display name → monetary value, per kind.
// Cash has no items, only a minimum amount.

// CatalogItem is one coupon or gift card.
type CatalogItem struct {
	ID            string          `json:"id"`
	Kind          RedemptionKind  `json:"kind"`
	DisplayName   string          `json:"name"`
	MonetaryValue decimal.Decimal `json:"value"`
	PointsCost    int64           `json:"points_cost"`
}

// Catalog is the immutable reward catalog.
type Catalog struct {
	PointsPerUnit int64           `json:"points_per_unit"`
	MinCash       decimal.Decimal `json:"min_cash"`
	Coupons       []CatalogItem   `json:"coupons"`
	GiftCards     []CatalogItem   `json:"gift_cards"`
}

// NewCatalog validates the items and fills in their points cost.
func NewCatalog(pointsPerUnit int64, minCash decimal.Decimal, coupons, giftCards []CatalogItem) (Catalog, error) {
	if pointsPerUnit <= 0 {
		return Catalog{}, fmt.Errorf("points per currency unit must be positive, got %d", pointsPerUnit)
	}
	if minCash.IsNegative() {
		return Catalog{}, fmt.Errorf("minimum cash must not be negative, got %s", minCash)
	}
	c := Catalog{PointsPerUnit: pointsPerUnit, MinCash: minCash}

	seen := make(map[string]bool)
	build := func(kind RedemptionKind, in []CatalogItem) ([]CatalogItem, error) {
		out := make([]CatalogItem, 0, len(in))
		for _, it := range in {
			if it.ID == "" {
				return nil, fmt.Errorf("%s item %q has no id", kind, it.DisplayName)
			}
			key := string(kind) + "/" + it.ID
			if seen[key] {
				return nil, fmt.Errorf("duplicate %s item %q", kind, it.ID)
			}
			seen[key] = true
			if !it.MonetaryValue.IsPositive() {
				return nil, fmt.Errorf("%s item %q: value must be positive", kind, it.ID)
			}
			it.Kind = kind
			cost, err := c.PointsCost(it.MonetaryValue)
			if err != nil {
				return nil, fmt.Errorf("%s item %q: %w", kind, it.ID, err)
			}
			it.PointsCost = cost
			out = append(out, it)
		}
		return out, nil
	}

	var err error
	if c.Coupons, err = build(KindCoupon, coupons); err != nil {
		return Catalog{}, err
	}
	if c.GiftCards, err = build(KindGiftCard, giftCards); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// DefaultCatalog returns 1000 points per unit, a minimum cash-out of 10,
// and a small set of coupons and gift cards.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(1000, decimal.NewFromInt(10),
		[]CatalogItem{
			{ID: "grocery-5", DisplayName: "Grocery Coupon", MonetaryValue: decimal.NewFromInt(5)},
			{ID: "cafe-3", DisplayName: "Cafe Voucher", MonetaryValue: decimal.NewFromInt(3)},
			{ID: "transit-2", DisplayName: "Transit Pass Discount", MonetaryValue: decimal.NewFromInt(2)},
		},
		[]CatalogItem{
			{ID: "books-20", DisplayName: "Bookstore Gift Card", MonetaryValue: decimal.NewFromInt(20)},
			{ID: "movies-15", DisplayName: "Movie Gift Card", MonetaryValue: decimal.NewFromInt(15)},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// PointsCost converts a monetary amount to points, rounding up.
// A cost that does not fit in int64 is ErrInvalidAmount.
func (c Catalog) PointsCost(value decimal.Decimal) (int64, error) {
	cost := value.Mul(decimal.NewFromInt(c.PointsPerUnit)).Ceil()
	if cost.IsNegative() || cost.GreaterThan(maxPoints) {
		return 0, fmt.Errorf("%w: %s costs more than %d points", ErrInvalidAmount, value, int64(math.MaxInt64))
	}
	return cost.IntPart(), nil
}

// Lookup finds a coupon or gift card. Cash has no catalog.
func (c Catalog) Lookup(kind RedemptionKind, id string) (CatalogItem, bool) {
	var items []CatalogItem
	switch kind {
	case KindCoupon:
		items = c.Coupons
	case KindGiftCard:
		items = c.GiftCards
	case KindCash:
		return CatalogItem{}, false
	}
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return CatalogItem{}, false
}
