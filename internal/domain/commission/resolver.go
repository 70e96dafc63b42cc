package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Input carries everything needed to resolve one transaction's commission
type Input struct {
	SaleAmount decimal.Decimal
	Quantity   int64
	// ProductPolicy is the optional product-level override. Nil means the
	// product defers to the seller level.
	ProductPolicy *ProductPolicy
	// SellerRate is the optional seller-level default. Nil means the seller
	// defers to the platform level.
	SellerRate *SellerDefaultRate
}

// Warning records a precedence level that was skipped because its policy was invalid
type Warning struct {
	Level  PolicySource
	Reason string
}

// Resolution is the outcome of resolving a single transaction's commission.
// Source attributes the winning precedence level for audit purposes.
type Resolution struct {
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Source           PolicySource    `json:"source"`
	ValueUsed        decimal.Decimal `json:"value_used"`
	Warnings         []Warning       `json:"-"`
}

var one = decimal.NewFromInt(1)

// Resolve applies the commission policy cascade to a single transaction:
// product override, then seller default, then the platform default rate.
// Invalid policy values never fail resolution; they fall through to the next
// level and are reported in Warnings. Resolve is pure - the caller owns
// logging and persistence.
func Resolve(in Input) Resolution {
	var warnings []Warning

	if in.ProductPolicy != nil {
		amount, valueUsed, err := applyProductPolicy(in)
		if err == nil {
			return Resolution{
				CommissionAmount: amount,
				Source:           SourceProduct,
				ValueUsed:        valueUsed,
				Warnings:         warnings,
			}
		}
		warnings = append(warnings, Warning{Level: SourceProduct, Reason: err.Error()})
	}

	if in.SellerRate != nil {
		if err := validateSellerRate(*in.SellerRate); err == nil {
			fraction := in.SellerRate.AsFraction()
			return Resolution{
				CommissionAmount: in.SaleAmount.Mul(fraction),
				Source:           SourceSeller,
				ValueUsed:        fraction,
				Warnings:         warnings,
			}
		} else {
			warnings = append(warnings, Warning{Level: SourceSeller, Reason: err.Error()})
		}
	}

	// Platform default is always valid
	return Resolution{
		CommissionAmount: in.SaleAmount.Mul(PlatformDefaultRate),
		Source:           SourcePlatform,
		ValueUsed:        PlatformDefaultRate,
		Warnings:         warnings,
	}
}

// applyProductPolicy computes the commission for a product-level override.
// Returns an error when the policy is invalid so the cascade can fall through.
func applyProductPolicy(in Input) (decimal.Decimal, decimal.Decimal, error) {
	p := *in.ProductPolicy
	switch p.Type {
	case PolicyTypeRate:
		if p.Value.IsNegative() || p.Value.GreaterThan(one) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("rate %s outside [0,1]", p.Value)
		}
		return in.SaleAmount.Mul(p.Value), p.Value, nil
	case PolicyTypeFixed:
		if p.Value.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("negative fixed value %s", p.Value)
		}
		amount := p.Value.Mul(decimal.NewFromInt(in.Quantity))
		// A per-unit fee never exceeds the sale itself
		if amount.GreaterThan(in.SaleAmount) {
			amount = in.SaleAmount
		}
		return amount, p.Value, nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("unknown policy type %q", p.Type)
	}
}

func validateSellerRate(r SellerDefaultRate) error {
	if r.Percent.IsNegative() || r.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("seller rate %s%% outside [0,100]", r.Percent)
	}
	return nil
}
