package format

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// ErrBadTimestamp is returned by ParseTimestamp for unrecognized input.
var ErrBadTimestamp = errors.New("unrecognized timestamp")

// Supported locales, in matcher order. Tags matched with Low confidence or
// worse get the first one.
var (
	supported = []language.Tag{language.Russian, language.English}
	matcher   = language.NewMatcher(supported)
)

// localeWords holds the vocabulary of one locale.
type localeWords struct {
	now        string
	minutes    string // suffix after the minute count
	yesterday  string
	months     [12]string
	yearSuffix string
}

// words is indexed like supported.
var words = []localeWords{
	{
		now:       "сейчас",
		minutes:   "м",
		yesterday: "вчера",
		months: [12]string{
			"янв.", "февр.", "мар.", "апр.", "мая", "июн.",
			"июл.", "авг.", "сент.", "окт.", "нояб.", "дек.",
		},
		yearSuffix: " г.",
	},
	{
		now:       "now",
		minutes:   "m",
		yesterday: "yesterday",
		months: [12]string{
			"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
		},
	},
}

// Formatter renders times for one locale and time zone. Create one with New.
type Formatter struct {
	Locale   language.Tag // matched supported locale
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	words localeWords
}

// New creates a Formatter for the closest supported locale to tag, in the
// local time zone.
func New(tag language.Tag) *Formatter {
	_, idx, conf := matcher.Match(tag)
	if conf <= language.Low {
		idx = 0
	}
	return &Formatter{
		Locale:   supported[idx],
		Location: time.Local,
		Now:      time.Now,
		words:    words[idx],
	}
}

// NewFromString is New with a BCP 47 language string such as "ru" or "en-GB".
func NewFromString(lang string) (*Formatter, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", lang, err)
	}
	return New(tag), nil
}

var defaultFormatter = New(language.Russian)

// FormatTime formats t relative to now with the Russian locale.
func FormatTime(t time.Time) string {
	return defaultFormatter.FormatTime(t)
}

// FormatTimestamp parses and formats a backend timestamp with the Russian
// locale.
func FormatTimestamp(s string) (string, error) {
	return defaultFormatter.FormatTimestamp(s)
}

// FormatTime returns a short relative description of t:
//
//	under a minute    now
//	under an hour     {N}m
//	same day          15:04
//	previous day      yesterday
//	same year         {day} {month}
//	otherwise         {day} {month} {year}
//
// Times in the future count as under a minute.
func (f *Formatter) FormatTime(t time.Time) string {
	now := f.now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return f.words.now
	case diff < time.Hour:
		return strconv.Itoa(int(diff/time.Minute)) + f.words.minutes
	}

	loc := f.location()
	t = t.In(loc)
	now = now.In(loc)

	if sameDay(t, now) {
		return t.Format("15:04")
	}
	if sameDay(t, now.AddDate(0, 0, -1)) {
		return f.words.yesterday
	}

	date := strconv.Itoa(t.Day()) + " " + f.words.months[t.Month()-1]
	if t.Year() == now.Year() {
		return date
	}
	return date + " " + strconv.Itoa(t.Year()) + f.words.yearSuffix
}

// FormatTimestamp parses s with ParseTimestamp and formats it.
func (f *Formatter) FormatTimestamp(s string) (string, error) {
	t, err := ParseTimestamp(s, f.location())
	if err != nil {
		return "", err
	}
	return f.FormatTime(t), nil
}

func (f *Formatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Formatter) location() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseTimestamp accepts the timestamp shapes the backend emits: RFC 3339
// with or without fractional seconds, a zone-less date-time (read in loc) and
// a bare date (UTC).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}
