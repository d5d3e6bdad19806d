package returns

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	changedMindSurcharge = decimal.NewFromFloat(1.5)
	maxFeePercent        = decimal.NewFromInt(100)
	oneHundred           = decimal.NewFromInt(100)
)

// FeePolicy computes restocking fees and refund amounts for return lines.
// It is a pure calculator; the numbers come from configuration.
type FeePolicy struct {
	// BasePercent is the baseline restocking fee in percent of the gross
	// line value, before condition and reason adjustments.
	BasePercent decimal.Decimal
	// ReturnWindowDays is how long after the order date a sale return is accepted
	ReturnWindowDays int
}

// DefaultFeePolicy mirrors the standard policy of a 15% base fee and a 30-day window
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		BasePercent:      decimal.NewFromInt(15),
		ReturnWindowDays: 30,
	}
}

// FeePercent returns the effective restocking-fee percentage for a line.
// Store-fault reasons waive the fee entirely; otherwise the base percent is
// scaled by the condition multiplier, surcharged 1.5x for a changed mind,
// and capped at 100%.
func (p FeePolicy) FeePercent(condition ItemCondition, reason ReturnReason) decimal.Decimal {
	if reason.IsStoreFault() {
		return decimal.Zero
	}
	pct := p.BasePercent.Mul(condition.FeeMultiplier())
	if reason == ReasonChangedMind {
		pct = pct.Mul(changedMindSurcharge)
	}
	if pct.GreaterThan(maxFeePercent) {
		return maxFeePercent
	}
	return pct
}

// Quote computes the restocking fee and refund amount for a line
func (p FeePolicy) Quote(
	unitPrice, quantity decimal.Decimal,
	condition ItemCondition,
	reason ReturnReason,
) (fee, refund decimal.Decimal) {
	gross := unitPrice.Mul(quantity)
	fee = gross.Mul(p.FeePercent(condition, reason)).Div(oneHundred).Round(2)
	refund = gross.Sub(fee)
	return fee, refund
}

// WithinWindow reports whether a return requested now is inside the return
// window counted from the order date. A non-positive window disables the check.
func (p FeePolicy) WithinWindow(orderedAt, now time.Time) bool {
	if p.ReturnWindowDays <= 0 {
		return true
	}
	deadline := orderedAt.AddDate(0, 0, p.ReturnWindowDays)
	return !now.After(deadline)
}
