package profile

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// AgeWords lists the noun forms for each CLDR cardinal category. Other is the
// fallback for any category a locale leaves empty.
type AgeWords struct {
	One, Few, Many, Other string
}

var ageWords = map[string]AgeWords{
	"ru": {One: "год", Few: "года", Many: "лет", Other: "лет"},
	"en": {One: "year", Other: "years"},
}

const DefaultLocale = "ru"

func wordsFor(locale string) (language.Tag, AgeWords) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Russian
	}
	base, _ := tag.Base()
	w, ok := ageWords[base.String()]
	if !ok {
		return language.Russian, ageWords[DefaultLocale]
	}
	// Plural rules are per language; regional variants add nothing here.
	return language.Make(base.String()), w
}

// SupportedLocale reports whether FormatAge has words for locale.
func SupportedLocale(locale string) bool {
	tag, err := language.Parse(locale)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	_, ok := ageWords[base.String()]
	return ok
}

// FormatAge renders n with the noun form its plural category takes in locale,
// e.g. "21 год", "22 года", "25 лет". Non-positive ages format as "".
func FormatAge(locale string, n int) string {
	if n <= 0 {
		return ""
	}
	tag, w := wordsFor(locale)
	var word string
	switch plural.Cardinal.MatchPlural(tag, n, 0, 0, 0, 0) {
	case plural.One:
		word = w.One
	case plural.Few:
		word = w.Few
	case plural.Many:
		word = w.Many
	}
	if word == "" {
		word = w.Other
	}
	return strconv.Itoa(n) + " " + word
}

// ParseAge extracts the number from a typed or formatted age ("52", "52 года").
func ParseAge(s string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < 128 {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
