// Package wallet implements the currency aggregate.
package wallet

// Wallet holds the spendable balance and the lifetime-earned counter the
// merge rule compares. Balance never goes negative; Spend is a checked
// no-op when funds are short.
type Wallet struct {
	Balance uint64 `json:"balance"`
	// LifetimeEarned only ever grows. Spending reduces Balance but not
	// this counter, which is what makes max-merge loss-proof.
	LifetimeEarned uint64 `json:"lifetimeEarned"`
	// LifetimeSpent mirrors LifetimeEarned for the spend side so the
	// merged balance can be re-derived instead of guessed.
	LifetimeSpent uint64 `json:"lifetimeSpent"`
	// CurrencyMultiplier is the active coin multiplier, rebroadcast by
	// the effect ledger. Always >= 1. Derived state; a merge keeps the
	// larger side only until the ledger rebroadcasts.
	CurrencyMultiplier float64 `json:"currencyMultiplier"`
}

// New returns an empty wallet with a neutral multiplier.
func New() Wallet {
	return Wallet{CurrencyMultiplier: 1.0}
}

// SetMultiplier installs a rebroadcast currency multiplier, clamped to 1.
func (w *Wallet) SetMultiplier(m float64) {
	if m < 1.0 {
		m = 1.0
	}
	w.CurrencyMultiplier = m
}

// Earn credits amount (already multiplier-scaled by the caller).
func (w *Wallet) Earn(amount uint64) {
	w.Balance += amount
	w.LifetimeEarned += amount
}

// EarnScaled applies the active currency multiplier to base, floors,
// credits the result, and reports what was granted.
func (w *Wallet) EarnScaled(base uint64) uint64 {
	m := w.CurrencyMultiplier
	if m < 1.0 {
		m = 1.0
	}
	amount := uint64(float64(base) * m)
	w.Earn(amount)
	return amount
}

// Deposit credits amount without counting it as session earnings
// (purchases refunds, mining payouts routed by the caller decide which).
func (w *Wallet) Deposit(amount uint64) {
	w.Earn(amount)
}

// Spend debits amount. Returns false and leaves the balance unchanged
// when the balance is insufficient.
func (w *Wallet) Spend(amount uint64) bool {
	if amount > w.Balance {
		return false
	}
	w.Balance -= amount
	w.LifetimeSpent += amount
	return true
}

// Merge reconciles two wallet snapshots. The lifetime counters merge by
// max and the balance is re-derived from them, so neither earnings nor
// spends observed on only one device are lost or double-counted.
func Merge(local, remote Wallet) Wallet {
	merged := Wallet{
		LifetimeEarned:     maxU64(local.LifetimeEarned, remote.LifetimeEarned),
		LifetimeSpent:      maxU64(local.LifetimeSpent, remote.LifetimeSpent),
		CurrencyMultiplier: maxF64(maxF64(local.CurrencyMultiplier, remote.CurrencyMultiplier), 1.0),
	}
	if merged.LifetimeEarned > merged.LifetimeSpent {
		merged.Balance = merged.LifetimeEarned - merged.LifetimeSpent
	}
	return merged
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func maxF64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
