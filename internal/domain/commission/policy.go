package commission

import (
	"github.com/shopspring/decimal"
)

// PolicyType represents how a product-level commission override is computed
type PolicyType string

const (
	PolicyTypeRate  PolicyType = "RATE"  // Fraction of the sale amount, value in [0,1]
	PolicyTypeFixed PolicyType = "FIXED" // Fixed amount per unit sold
)

// IsValid checks if the policy type is a valid PolicyType
func (t PolicyType) IsValid() bool {
	return t == PolicyTypeRate || t == PolicyTypeFixed
}

// String returns the string representation of PolicyType
func (t PolicyType) String() string {
	return string(t)
}

// PolicySource identifies which level of the commission cascade produced a result
type PolicySource string

const (
	SourceProduct  PolicySource = "PRODUCT"
	SourceSeller   PolicySource = "SELLER"
	SourcePlatform PolicySource = "PLATFORM"
)

// String returns the string representation of PolicySource
func (s PolicySource) String() string {
	return string(s)
}

// PlatformDefaultRate is the compiled-in platform commission rate applied when
// neither a product override nor a seller default resolves.
var PlatformDefaultRate = decimal.RequireFromString("0.20")

// ProductPolicy is a product-level commission override. Both fields are read
// from the product record; the engine consumes but does not own them.
type ProductPolicy struct {
	Type  PolicyType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// SellerDefaultRate is a seller-level default commission rate expressed as a
// percentage in [0,100]. Read from the seller record.
type SellerDefaultRate struct {
	Percent decimal.Decimal `json:"percent"`
}

// AsFraction converts the percentage to a fraction in [0,1]
func (r SellerDefaultRate) AsFraction() decimal.Decimal {
	return r.Percent.Div(decimal.NewFromInt(100))
}
