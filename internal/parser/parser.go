// Package parser extracts expenses from free-form Uzbek text without any
// external service. It is the fallback when the AI parser is unavailable.
package parser

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/hamyon/hamyon/internal/consts"
)

// Expense is a parsed expense candidate. Amount is in UZS; zero means no
// amount was found.
type Expense struct {
	Amount   float64 `json:"amount"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
}

// HasAmount reports whether a usable amount was extracted.
func (e Expense) HasAmount() bool {
	return e.Amount > 0
}

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")

	reNumber   = regexp.MustCompile(`\d+(?:[.,\s]\d+)*`)
	reCurrency = regexp.MustCompile(`\b(?:so'm|so‘m|som|sum)\b`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// keywords maps lower-case word stems to categories.
var keywords = []struct {
	category string
	stems    []string
}{
	{consts.CategoryFood, []string{"non", "go'sht", "gosht", "ovqat", "tushlik", "nonushta", "kechki", "market", "bozor", "somsa", "choy", "kofe", "sut", "meva"}},
	{consts.CategoryTransport, []string{"taksi", "taxi", "metro", "avtobus", "benzin", "yoqilg'i", "propan", "metan", "yandex"}},
	{consts.CategoryHousehold, []string{"kommunal", "svet", "gaz", "suv", "ijara", "kvartira", "mebel", "idish"}},
	{consts.CategoryCommunication, []string{"internet", "telefon", "aloqa", "paynet", "balans", "uzmobile", "beeline", "ucell", "mobiuz"}},
	{consts.CategoryHealth, []string{"dori", "apteka", "dorixona", "shifokor", "vrach", "klinika"}},
	{consts.CategoryClothes, []string{"kiyim", "ko'ylak", "shim", "poyabzal", "oyoq kiyim", "kurtka", "futbolka"}},
	{consts.CategoryFun, []string{"kino", "o'yin", "konsert", "park", "dam olish", "restoran", "kafe"}},
	{consts.CategoryEducation, []string{"kitob", "kurs", "kontrakt", "o'qish", "dars", "repetitor", "maktab"}},
}

// Parse extracts the first number in text as the amount and the remaining
// words as the title. Amounts below 1000 are read as thousands.
func Parse(text string) Expense {
	lower := strings.ToLower(strings.TrimSpace(text))
	result := Expense{Title: lower, Category: consts.CategoryOther}

	if loc := reNumber.FindStringIndex(lower); loc != nil {
		raw := lower[loc[0]:loc[1]]
		digits := strings.ReplaceAll(reSpaces.ReplaceAllString(raw, ""), ",", ".")
		if amount, err := strconv.ParseFloat(digits, 64); err == nil {
			if amount > 0 && amount < 1000 {
				amount *= 1000
			}
			result.Amount = amount
			result.Title = lower[:loc[0]] + " " + lower[loc[1]:]
		}
	}

	title := reCurrency.ReplaceAllString(result.Title, "")
	title = strings.TrimSpace(reSpaces.ReplaceAllString(title, " "))
	if utf8.RuneCountInString(title) < 2 {
		title = consts.DefaultRegexTitle
	} else {
		title = capitalize(title)
	}
	result.Title = title
	result.Category = GuessCategory(lower)

	return result
}

// GuessCategory picks a category by keyword, falling back to Boshqa.
func GuessCategory(text string) string {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		for _, stem := range k.stems {
			if strings.Contains(lower, stem) {
				return k.category
			}
		}
	}
	return consts.CategoryOther
}

// NormalizeCategory returns c when it is a known category and Boshqa
// otherwise. Matching ignores case and surrounding spaces.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range consts.Categories {
		if strings.EqualFold(known, c) {
			return known
		}
	}
	return consts.CategoryOther
}

// ParseAmount reads a user-typed amount such as "15 000" or "15,000".
func ParseAmount(text string) (float64, error) {
	v, err := parseNumber(text)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseLimit is like ParseAmount but allows zero, which disables the limit.
func ParseLimit(text string) (float64, error) {
	v, err := parseNumber(text)
	if err != nil || v < 0 {
		return 0, ErrInvalidAmount
	}
	if v == 0 {
		return 0, nil
	}
	return v, nil
}

// parseNumber strips the currency and digit separators and returns a finite
// number of any sign.
func parseNumber(text string) (float64, error) {
	cleaned := reCurrency.ReplaceAllString(strings.ToLower(text), "")
	cleaned = strings.NewReplacer(" ", "", ",", "", "\u00a0", "").Replace(strings.TrimSpace(cleaned))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders a sum with thousands separators and no fraction.
func FormatAmount(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
