package script

import (
	"context"
	"errors"
	"strings"

	"results-hotline/internal/locale"
)

// Script is a localized message template keyed by (name, language).
//
// Lookup never falls back to another language: a missing (name, language)
// row is a hard miss surfaced as ErrNotFound, so a mistranslated deploy is
// caught instead of silently speaking the wrong language.
type Script struct {
	Name     string
	Language locale.Language
	Body     string
}

// Well-known script names. Branch and prompt templates are independent
// lookups; result and master templates are derived with a prefix.
const (
	NameWelcome             = "welcome"
	NameLanguageNotSelected = "language_not_selected"
	NameUsernamePrompt      = "username_prompt"
	NameInvalidUsername     = "invalid_username"
	NamePasswordPrompt      = "password_prompt"
	NameInvalidPassword     = "invalid_password"
	NameRepeatPrompt        = "repeat_prompt"
	NameTechnicalError      = "technical_error"
	NameComeBack            = "come_back"
	NamePending             = "pending"
	NameError               = "error"

	masterPrefix = "master_"
	resultPrefix = "result_"
)

var (
	ErrNotFound = errors.New("script: not found")
)

// MasterName derives the outer wrapping template name for a delivery channel.
func MasterName(channel string) string {
	return masterPrefix + slug(channel)
}

// ResultName derives the per-test message template name from a status label.
func ResultName(statusLabel string) string {
	return resultPrefix + slug(statusLabel)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

// Store is the read-only lookup contract consumed by the composer and the
// call-flow machine.
type Store interface {
	// Get returns the script for (name, language). Returns ErrNotFound when
	// no row exists for that exact pair; any other error is transient I/O.
	Get(ctx context.Context, name string, lang locale.Language) (Script, error)
}
