package locale

import (
	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
)

// Language is the caller-facing language identifier stored in the call
// session and on clinic/script rows. It is not a BCP 47 tag; Tag() and
// SpeechCode() produce displayable codes.
type Language string

const (
	English Language = "english"
	Spanish Language = "spanish"
)

// Default is the primary language, used before the caller has chosen one
// and whenever resolution fails. Resolution never errors; it degrades here.
func Default() Language { return English }

// FromDigit maps a keypad digit to a language selection.
func FromDigit(d string) (Language, bool) {
	switch d {
	case "1":
		return English, true
	case "2":
		return Spanish, true
	default:
		return "", false
	}
}

func (l Language) Valid() bool {
	return l == English || l == Spanish
}

// Resolve degrades an unset or unknown language to the default.
func Resolve(l Language) Language {
	if !l.Valid() {
		return Default()
	}
	return l
}

// Tag returns the displayable locale code for script lookups.
func (l Language) Tag() string {
	switch Resolve(l) {
	case Spanish:
		return "es"
	default:
		return "en"
	}
}

// SpeechCode returns the synthesizer voice code for the telephony provider.
func (l Language) SpeechCode() string {
	switch Resolve(l) {
	case Spanish:
		return "es-MX"
	default:
		return "en-US"
	}
}

// translator returns the CLDR translator backing date formatting.
func translator(l Language) locales.Translator {
	switch Resolve(l) {
	case Spanish:
		return es.New()
	default:
		return en.New()
	}
}
