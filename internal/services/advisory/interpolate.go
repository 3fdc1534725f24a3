package advisory

import (
	"regexp"
	"strings"
)

// Templates carry {{var}} and ${var} placeholders over a closed variable set
// (crop, region, recentRain, tempMax).
var (
	bracePlaceholder  = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	dollarPlaceholder = regexp.MustCompile(`\$\{\s*([A-Za-z0-9_]+)\s*\}`)
)

// Interpolate replaces every placeholder with its value from vars; unknown
// variables become the empty string.
func Interpolate(text string, vars map[string]string) string {
	if text == "" {
		return ""
	}
	sub := func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(m string) string {
			key := re.FindStringSubmatch(m)[1]
			return vars[key]
		})
	}
	return sub(dollarPlaceholder, sub(bracePlaceholder, text))
}

// Sanitize strips stray literal "undefined" substrings that incompletely
// interpolated templates can leave behind, then trims whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "undefined", ""))
}
