package pricing

// Tier is one pricing bracket. MaxChars == 0 marks the unbounded final tier.
type Tier struct {
	MaxChars int
	Price    int64
}

// Calculator maps character counts to analysis prices in cents.
type Calculator struct {
	Tiers     []Tier
	MinCharge int64
}

// DefaultTiers mirrors the launch price list.
func DefaultTiers() []Tier {
	return []Tier{
		{MaxChars: 1000, Price: 100},
		{MaxChars: 5000, Price: 200},
		{MaxChars: 10000, Price: 300},
		{MaxChars: 50000, Price: 500},
		{MaxChars: 100000, Price: 800},
		{MaxChars: 0, Price: 1000},
	}
}

// NewCalculator builds a calculator with the default tiers and the given floor.
func NewCalculator(minCharge int64) Calculator {
	return Calculator{Tiers: DefaultTiers(), MinCharge: minCharge}
}

// Price returns the charge in cents for a character count. It is total over
// non-negative counts; callers reject negative input at the boundary.
func (c Calculator) Price(charCount int) int64 {
	price := c.MinCharge
	for _, tier := range c.Tiers {
		if tier.MaxChars == 0 || charCount <= tier.MaxChars {
			price = tier.Price
			break
		}
	}
	if price < c.MinCharge {
		price = c.MinCharge
	}
	return price
}
