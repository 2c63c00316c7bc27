package credits

// Pricing holds the rule-chain constants. The values are fixed by the billing
// contract, not derived; change them only together with the tests that pin
// them.
type Pricing struct {
	BaseCost          Millicredits
	PerCharacter      Millicredits
	PerWord           Millicredits
	ShortWordRebate   Millicredits // words of <=3 runes cost PerWord - rebate
	LongWordSurcharge Millicredits // words of >=8 runes cost PerWord + surcharge
	PerVowel          Millicredits

	LengthPenalty          Millicredits
	LengthPenaltyThreshold int // characters, exclusive

	UniqueWordDiscount   Millicredits
	MinimumCost          Millicredits
	PalindromeMultiplier int64
}

// DefaultPricing returns the production rates.
func DefaultPricing() Pricing {
	return Pricing{
		BaseCost:          1000, // 1.0 credit
		PerCharacter:      50,   // 0.05 per character
		PerWord:           200,  // 0.2 per word
		ShortWordRebate:   100,  // short words net 0.1
		LongWordSurcharge: 100,  // long words net 0.3
		PerVowel:          300,  // 0.3 per stride vowel

		LengthPenalty:          5000, // flat 5.0
		LengthPenaltyThreshold: 100,

		UniqueWordDiscount:   2000, // 2.0 off when no word repeats
		MinimumCost:          1000, // never below 1.0 before doubling
		PalindromeMultiplier: 2,
	}
}

// Calculator prices messages by running TextMetrics through an ordered rule
// chain. The order is part of the billing contract: the minimum-cost floor is
// applied before palindrome doubling, so a palindrome always costs at least
// 2.0 credits.
type Calculator struct {
	pricing Pricing
}

// NewCalculator returns a calculator using the production rates.
func NewCalculator() *Calculator {
	return &Calculator{pricing: DefaultPricing()}
}

// NewCalculatorWithPricing returns a calculator with custom rates.
func NewCalculatorWithPricing(p Pricing) *Calculator {
	return &Calculator{pricing: p}
}

// Cost runs the rule chain over the metrics and returns the unrounded total.
// It cannot fail: any TextMetrics produced by Analyze yields a value of at
// least MinimumCost.
func (c *Calculator) Cost(m TextMetrics) Millicredits {
	p := c.pricing

	total := p.BaseCost
	total += p.PerCharacter * Millicredits(m.CharacterCount)
	total += p.PerWord * Millicredits(m.WordCount)
	total -= p.ShortWordRebate * Millicredits(m.ShortWordCount)
	total += p.LongWordSurcharge * Millicredits(m.LongWordCount)
	total += p.PerVowel * Millicredits(m.VowelCount)

	if m.CharacterCount > p.LengthPenaltyThreshold {
		total += p.LengthPenalty
	}

	if m.AllWordsUnique {
		total -= p.UniqueWordDiscount
	}

	if total < p.MinimumCost {
		total = p.MinimumCost
	}

	if m.IsPalindrome {
		total *= Millicredits(p.PalindromeMultiplier)
	}

	return total
}

// Price analyzes a message and returns its rounded credit cost.
func (c *Calculator) Price(message string) float64 {
	return c.Cost(Analyze(message)).Round()
}
