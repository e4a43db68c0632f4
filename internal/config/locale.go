package config

import (
	"strings"

	"golang.org/x/text/language"
)

// SupportedLanguages are the application language codes, in matcher order.
var SupportedLanguages = []string{"en_US", "zh_CN", "zh_TW"}

var languageMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.SimplifiedChinese,
	language.TraditionalChinese,
})

// DetectLanguage picks the application language from the POSIX locale
// variables, falling back to en_US.
func DetectLanguage(getenv func(string) string) string {
	if getenv == nil {
		return SupportedLanguages[0]
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang, ok := matchLocale(getenv(key)); ok {
			return lang
		}
	}
	return SupportedLanguages[0]
}

// matchLocale maps a locale such as "zh_TW.UTF-8" or "zh-Hans-SG" to an
// application language.
func matchLocale(locale string) (string, bool) {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return "", false
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return SupportedLanguages[0], true
	}
	return SupportedLanguages[index], true
}
