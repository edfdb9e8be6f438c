// Package rating maps arbitrary rating text to the canonical 0–5 scale.
package rating

import (
	"regexp"
	"strconv"
	"strings"
)

// Scale is the upper bound of the canonical rating scale.
const Scale = 5.0

var (
	// "4/5", "4.5 / 5", "3 out of 5", "7 of 10"
	fractionRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:/|out\s+of|of)\s*(\d+(?:\.\d+)?)`)

	// a bare number and nothing else
	bareNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	// "4 stars", "4.5-star", "Rated 3 stars"
	starCountRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)[\s-]*stars?\b`)
)

// numberWords covers the spoken forms that show up in accessible rating
// labels ("four out of five stars").
var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Filled star glyphs counted for discrete star markup. Hollow variants are
// deliberately absent.
var filledStars = []rune{'★', '⭐', '🌟'}

var hollowStars = []rune{'☆'}

// Normalize maps a raw rating string to the canonical 0–5 scale. It is pure
// and total: nil in, nil out; any unrecognized or out-of-range format yields
// nil, never a guessed value, and never a panic.
//
// Recognition order: numeric fractions (rescaled when the denominator is not
// 5), bare numbers, "N star(s)" phrases, spelled-out fractions, then filled
// star glyph counts.
func Normalize(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	s = replaceNumberWords(s)

	if m := fractionRe.FindStringSubmatch(s); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && den > 0 {
			return bounded(num / den * Scale)
		}
		return nil
	}

	if bareNumberRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return bounded(v)
	}

	if m := starCountRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return bounded(v)
	}

	if filled, any := countStars(s); any {
		return bounded(float64(filled))
	}

	return nil
}

// replaceNumberWords rewrites standalone number words as digits so the
// numeric patterns can match "four out of five".
func replaceNumberWords(s string) string {
	fields := strings.Fields(s)
	changed := false
	for i, f := range fields {
		if v, ok := numberWords[strings.ToLower(f)]; ok {
			fields[i] = strconv.FormatFloat(v, 'f', -1, 64)
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(fields, " ")
}

// countStars counts filled star glyphs. The second return reports whether
// any star glyph (filled or hollow) was seen at all.
func countStars(s string) (filled int, any bool) {
	for _, r := range s {
		for _, f := range filledStars {
			if r == f {
				filled++
				any = true
			}
		}
		for _, h := range hollowStars {
			if r == h {
				any = true
			}
		}
	}
	return filled, any
}

// bounded returns a pointer to v when it is on the canonical scale, nil
// otherwise. Out-of-range values are unparseable, not clamped.
func bounded(v float64) *float64 {
	if v < 0 || v > Scale {
		return nil
	}
	return &v
}
