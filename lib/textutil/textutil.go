package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and removes all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return whitespaceRegex.ReplaceAllString(name, "")
}

// CollapseSpace trims the value and turns every whitespace run into a single space.
func CollapseSpace(value string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(value, " "))
}

var parenthesizedRegex = regexp.MustCompile(`（[^）]*）|\([^)]*\)`)

// StripParenthesized removes (...) and full width （...） annotations.
func StripParenthesized(value string) string {
	return strings.TrimSpace(parenthesizedRegex.ReplaceAllString(value, ""))
}

// ContainsAny returns the first needle contained in value.
func ContainsAny(value string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(value, n) {
			return n, true
		}
	}
	return "", false
}

// ClosestMatch returns the candidate most similar to name using Jaro-Winkler
// similarity, or false if nothing reaches the threshold.
func ClosestMatch(name string, candidates []string, threshold float64) (string, bool) {
	name = NormalizeName(name)
	if name == "" {
		return "", false
	}

	var best string
	var bestScore float64
	for _, c := range candidates {
		score := matchr.JaroWinkler(name, NormalizeName(c), false)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < threshold {
		return "", false
	}
	return best, true
}

// SplitList splits a comma separated list, trimming every item and dropping empty
// ones.
func SplitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
