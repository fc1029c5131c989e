package engine

import (
	"time"

	"github.com/focusforge-dev/focusforge/pkg/effect"
)

// Item is a purchasable boost in the shop.
type Item struct {
	ID         string
	Name       string
	Price      uint64
	Effect     effect.Type
	Multiplier float64
	// Duration zero means the effect is permanent.
	Duration time.Duration
}

// Catalog lists everything purchasable. The Purchase command spends the
// price from the wallet and appends the effect to the ledger.
var Catalog = []Item{
	{ID: "xp-boost-90m", Name: "XP ×1.5 (90 min)", Price: 40, Effect: effect.XPBoost, Multiplier: 1.5, Duration: 90 * time.Minute},
	{ID: "xp-boost-24h", Name: "XP ×1.25 (24 h)", Price: 120, Effect: effect.XPBoost, Multiplier: 1.25, Duration: 24 * time.Hour},
	{ID: "coin-boost-24h", Name: "Coins ×1.5 (24 h)", Price: 150, Effect: effect.CurrencyBoost, Multiplier: 1.5, Duration: 24 * time.Hour},
	{ID: "coin-doubler", Name: "Coins ×2 (permanent)", Price: 1200, Effect: effect.CurrencyBoost, Multiplier: 2.0},
}

func findItem(id string) (Item, bool) {
	for _, item := range Catalog {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}
