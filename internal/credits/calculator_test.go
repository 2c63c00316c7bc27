package credits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatorPrice(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name    string
		message string
		credits float64
	}{
		{
			// base 1.0 + 11 chars * 0.05 + 2 words * 0.2, all unique -2.0:
			// -0.05, floored to the 1.0 minimum.
			name:    "floor applies to cheap messages",
			message: "Hello world",
			credits: 1.00,
		},
		{
			// 17 chars, 3 words ("is" short, "COVID-19" long), vowels at
			// indices 3, 9, 15, unique words:
			// 1.0 + 0.85 + 0.6 - 0.1 + 0.1 + 0.9 - 2.0 = 1.35.
			name:    "hyphenated word with digits",
			message: "COVID-19 is great",
			credits: 1.35,
		},
		{
			name:    "empty message floors at the minimum",
			message: "",
			credits: 1.00,
		},
		{
			// Pre-floor value is negative; the palindrome doubling happens
			// after the floor, so the result is exactly 2 * 1.0.
			name:    "palindrome doubles after the floor",
			message: "racecar",
			credits: 2.00,
		},
		{
			// 27 chars, 7 words (4 short), repeated "a" so no unique
			// discount, 5 stride vowels:
			// 1.0 + 1.35 + 1.4 - 0.4 + 1.5 = 4.85, doubled to 9.70.
			name:    "classic palindrome sentence",
			message: "A man a plan a canal Panama",
			credits: 9.70,
		},
		{
			name:    "single word message",
			message: "banana",
			credits: 1.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.credits, calc.Price(tt.message))
		})
	}
}

func TestCalculatorLengthPenalty(t *testing.T) {
	calc := NewCalculator()

	// 100 chars: no penalty. One long unique word, zero vowels, palindrome
	// of a single repeated letter:
	// (1.0 + 5.0 + 0.2 + 0.1 - 2.0) * 2 = 8.60.
	assert.Equal(t, 8.60, calc.Price(strings.Repeat("x", 100)))

	// 101 chars: +5.0 penalty before doubling:
	// (1.0 + 5.05 + 0.2 + 0.1 + 5.0 - 2.0) * 2 = 18.70.
	assert.Equal(t, 18.70, calc.Price(strings.Repeat("x", 101)))
}

func TestCalculatorFloorPrecedesDoubling(t *testing.T) {
	calc := NewCalculator()

	// Every palindrome costs at least 2.0: the floor is applied first.
	for _, msg := range []string{"aa", "racecar", "abba", "noon"} {
		m := Analyze(msg)
		assert.True(t, m.IsPalindrome)
		assert.GreaterOrEqual(t, calc.Cost(m).Round(), 2.00, "message %q", msg)
	}
}

func TestCalculatorMinimumInvariant(t *testing.T) {
	calc := NewCalculator()

	for _, msg := range []string{"", "a", "hi", "the quick brown fox", "xyz 123"} {
		assert.GreaterOrEqual(t, calc.Price(msg), 1.00, "message %q", msg)
	}
}

func TestMillicreditsRounding(t *testing.T) {
	tests := []struct {
		millis  Millicredits
		rounded float64
	}{
		{1005, 1.01}, // half rounds up, not to even
		{1004, 1.00},
		{1015, 1.02}, // half-even would give 1.02 too; 1005 is the tell
		{1350, 1.35},
		{0, 0.00},
		{-1005, -1.01}, // ties away from zero
	}

	for _, tt := range tests {
		assert.Equal(t, tt.rounded, tt.millis.Round(), "millis %d", tt.millis)
	}
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, Millicredits(5500), FromFloat(5.5))
	assert.Equal(t, Millicredits(1005), FromFloat(1.005))
	assert.Equal(t, 1.01, FromFloat(1.005).Round(), "report costs round half-up")
}
