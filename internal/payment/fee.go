package payment

// FeeSchedule computes the platform fee in minor units for a charge of
// amountCents made by a merchant on the given subscription plan.  It is
// injected into the purchase coordinator as a pure strategy so pricing
// changes never touch the purchase transaction.
type FeeSchedule func(plan string, amountCents int64) int64

// feeRate is a percentage-plus-fixed-cents schedule entry.  Bps is the
// percentage in basis points (20 = 0.2%).
type feeRate struct {
	Bps   int64
	Fixed int64
}

// feeTable maps subscription plans to their platform fee rate.  Plans
// on paid subscriptions pay a smaller per-transaction cut.
var feeTable = map[string]feeRate{
	"free":    {Bps: 290, Fixed: 30},
	"starter": {Bps: 20, Fixed: 3},
	"pro":     {Bps: 0, Fixed: 0},
}

// DefaultFeeSchedule applies the built-in fee table.  The percentage
// part is rounded half-up to the nearest cent before the fixed part is
// added.  Unknown plans fall back to the "free" rate, the most
// conservative for the platform.
func DefaultFeeSchedule(plan string, amountCents int64) int64 {
	rate, ok := feeTable[plan]
	if !ok {
		rate = feeTable["free"]
	}
	pct := (amountCents*rate.Bps + 5000) / 10000
	return pct + rate.Fixed
}
