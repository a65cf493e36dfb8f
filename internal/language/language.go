package language

import (
	"strings"

	textlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Languages the voice model narrates well, keyed by lower-case English name.
var byName = map[string]textlang.Tag{
	"english":    textlang.English,
	"spanish":    textlang.Spanish,
	"french":     textlang.French,
	"german":     textlang.German,
	"italian":    textlang.Italian,
	"portuguese": textlang.Portuguese,
	"japanese":   textlang.Japanese,
	"korean":     textlang.Korean,
	"chinese":    textlang.Chinese,
	"russian":    textlang.Russian,
	"arabic":     textlang.Arabic,
	"hindi":      textlang.Hindi,
	"dutch":      textlang.Dutch,
	"polish":     textlang.Polish,
	"swedish":    textlang.Swedish,
	"danish":     textlang.Danish,
	"norwegian":  textlang.Norwegian,
	"finnish":    textlang.Finnish,
}

var namer = display.English.Languages()

// Resolve maps a language code or English name to its base language tag.
func Resolve(value string) (textlang.Tag, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return textlang.Und, false
	}
	if tag, ok := byName[value]; ok {
		return tag, true
	}
	tag, err := textlang.Parse(value)
	if err != nil || tag == textlang.Und {
		return textlang.Und, false
	}
	base, _ := tag.Base()
	return textlang.Make(base.String()), true
}

// Name returns the English name for value, e.g. "fra" -> "French". Unknown
// values are returned trimmed so free-form names still reach the prompt.
func Name(value string) string {
	tag, ok := Resolve(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return strings.TrimSpace(value)
}

// Code returns the ISO 639-1 code for value, or an empty string when value is
// not a recognised language.
func Code(value string) string {
	tag, ok := Resolve(value)
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
