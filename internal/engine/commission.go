package engine

import (
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CalculateFees computes the buyer and seller commission for a settled
// amount, rounded half-up to two decimal places. A nil rule is the
// documented fallback: both fees are zero, not an error.
func CalculateFees(amount decimal.Decimal, rule *types.CommissionRule) (buyerFee, sellerFee decimal.Decimal) {
	if rule == nil {
		zero := decimal.Zero.Round(2)
		return zero, zero
	}
	buyerFee = amount.Mul(rule.BuyerPercent).Div(oneHundred).Round(2)
	sellerFee = amount.Mul(rule.SellerPercent).Div(oneHundred).Round(2)
	return buyerFee, sellerFee
}
