// Package catalog assembles a reseller's public storefront: every active
// product at the price that reseller shows.
package catalog

import (
	"sort"

	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/pricing"
	"github.com/shopspring/decimal"
)

type Reseller struct {
	Slug           string `json:"slug"`
	DisplayName    string `json:"display_name"`
	ContactChannel string `json:"contact_channel,omitempty"`
}

type Entry struct {
	ProductID    int64           `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	CategoryID   *string         `json:"category_id,omitempty"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	Overridden   bool            `json:"overridden"`
	Sizes        []string        `json:"sizes,omitempty"`
}

type Storefront struct {
	Reseller Reseller `json:"reseller"`
	Products []Entry  `json:"products"`
}

// Build prices products for reseller. Inactive products are left out and
// sizes are listed only while they have stock. Overridden is true when the
// pinned price is the one shown; a pin that fell below a raised base price
// is ignored.
func Build(reseller *models.ResellerProfile, products []models.Product, overrides []models.ResellerPriceOverride) Storefront {
	pinned := make(map[int64]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		pinned[o.ProductID] = o.Price
	}

	sf := Storefront{
		Reseller: Reseller{
			Slug:           reseller.Slug,
			DisplayName:    reseller.DisplayName,
			ContactChannel: reseller.ContactChannel,
		},
		Products: []Entry{},
	}

	for _, p := range products {
		if !p.Active {
			continue
		}

		var override *decimal.Decimal
		if price, ok := pinned[p.ID]; ok {
			override = &price
		}
		price := pricing.ResolveDisplayPrice(p.BasePrice, reseller.DefaultMarkup, override)

		sf.Products = append(sf.Products, Entry{
			ProductID:    p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			Description:  p.Description,
			CategoryID:   p.CategoryID,
			DisplayPrice: price,
			Overridden:   override != nil && override.Equal(price),
			Sizes:        availableSizes(p.StockBySize),
		})
	}

	return sf
}

func availableSizes(stock models.StockBySize) []string {
	var sizes []string
	for size, units := range stock {
		if units > 0 {
			sizes = append(sizes, size)
		}
	}
	sort.Strings(sizes)
	return sizes
}
