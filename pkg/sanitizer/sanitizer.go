package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reSlotNumberJunk = regexp.MustCompile(`[^0-9A-Z\-]+`)
	rePlateJunk      = regexp.MustCompile(`[^0-9A-Z]+`)
	reMultiHyphen    = regexp.MustCompile(`-+`)
)

func upper(s string) string {
	return strings.ToUpper(s)
}

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SanitizeSlotNumber turns " a 1 " into "A1" and "b--02" into "B-02".
func SanitizeSlotNumber(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		upper,
		func(s string) string { return reSlotNumberJunk.ReplaceAllString(s, "") },
		func(s string) string { return reMultiHyphen.ReplaceAllString(s, "-") },
		func(s string) string { return strings.Trim(s, "-") },
	}
	return p.Apply(input)
}

// SanitizePlate strips spacing and punctuation: "rab 123-c" becomes "RAB123C".
func SanitizePlate(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		upper,
		func(s string) string { return rePlateJunk.ReplaceAllString(s, "") },
	}
	return p.Apply(input)
}

// SanitizeCategory is used for vehicle types and sizes, which are matched
// by exact string equality.
func SanitizeCategory(input string) string {
	return Pipeline{trimAndLower, TrimAndNormalize}.Apply(input)
}
