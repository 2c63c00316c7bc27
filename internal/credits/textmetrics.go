package credits

import (
	"strings"
	"unicode"
)

const (
	// Word length boundaries, in runes over the whole token.
	shortWordMaxLen = 3
	longWordMinLen  = 8

	vowels = "aeiouAEIOU"

	// Every third character is checked for a vowel, starting at index 0.
	vowelStride = 3
)

// TextMetrics holds the per-message measurements the pricing chain consumes.
// Computed once per request; derived values only, no behaviour.
type TextMetrics struct {
	CharacterCount int
	WordCount      int
	ShortWordCount int
	LongWordCount  int
	VowelCount     int
	AllWordsUnique bool
	IsPalindrome   bool
}

// Analyze measures a raw message. It never fails: any string, including the
// empty one, yields well-formed metrics.
func Analyze(text string) TextMetrics {
	runes := []rune(text)

	m := TextMetrics{
		CharacterCount: len(runes),
		VowelCount:     strideVowels(runes),
		AllWordsUnique: true,
		IsPalindrome:   isPalindrome(runes),
	}

	// A word is a whitespace-separated token containing at least one letter.
	// Digits and punctuation attached to letters stay part of the token, so
	// "COVID-19" is a single 8-rune word while a bare "19" is not a word.
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		if !strings.ContainsFunc(token, unicode.IsLetter) {
			continue
		}
		m.WordCount++

		switch n := len([]rune(token)); {
		case n <= shortWordMaxLen:
			m.ShortWordCount++
		case n >= longWordMinLen:
			m.LongWordCount++
		}

		if _, dup := seen[token]; dup {
			m.AllWordsUnique = false
		}
		seen[token] = struct{}{}
	}

	return m
}

// strideVowels counts ASCII vowels at indices 0, 3, 6, ... of the message.
func strideVowels(runes []rune) int {
	count := 0
	for i := 0; i < len(runes); i += vowelStride {
		if strings.ContainsRune(vowels, runes[i]) {
			count++
		}
	}
	return count
}

// isPalindrome case-folds the message, strips everything that is not a
// letter, and compares the result to its reverse. A message that normalizes
// to nothing is not a palindrome.
func isPalindrome(runes []rune) bool {
	letters := make([]rune, 0, len(runes))
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToLower(r))
		}
	}
	if len(letters) == 0 {
		return false
	}

	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		if letters[i] != letters[j] {
			return false
		}
	}
	return true
}
