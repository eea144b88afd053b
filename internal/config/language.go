package config

import (
	"regexp"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// languagePattern accepts ISO 639-1/639-2 codes with an optional region or
// script subtag ("en", "pt-BR", "zh-Hant").
var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})?$`)

// ValidLanguage reports whether code looks like a language code.
func ValidLanguage(code string) bool {
	return languagePattern.MatchString(code)
}

// LanguageName returns the English display name for code ("es" -> "Spanish"),
// or "" when the code is not a known BCP 47 tag.
func LanguageName(code string) string {
	if !ValidLanguage(code) {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}
