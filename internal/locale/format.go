package locale

import (
	"fmt"
	"strings"
	"time"
)

// FormatDate renders a date for speech synthesis with the weekday and month
// spelled out. The primary language gets an ordinal day-of-month ("June 1st");
// every other language follows its own CLDR full-date convention with a plain
// day number.
func FormatDate(t time.Time, l Language) string {
	l = Resolve(l)
	tr := translator(l)
	if l == English {
		return fmt.Sprintf("%s, %s %s, %d",
			tr.WeekdayWide(t.Weekday()),
			tr.MonthWide(t.Month()),
			Ordinal(t.Day()),
			t.Year(),
		)
	}
	return tr.FmtDateFull(t)
}

// Ordinal returns the English ordinal form of a day-of-month (1st, 2nd, ...).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// SpaceDigits inserts a space between every character so the synthesizer
// speaks each digit individually instead of reading a multi-digit number.
func SpaceDigits(s string) string {
	if s == "" {
		return ""
	}
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, " ")
}

// JoinNames joins a list of names into a natural-language enumeration using
// the language's conjunction ("a, b and c" / "a, b y c").
func JoinNames(names []string, l Language) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	conj := "and"
	if Resolve(l) == Spanish {
		conj = "y"
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + conj + " " + names[len(names)-1]
}
