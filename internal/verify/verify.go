// Package verify pulls verification codes out of message bodies and folds
// repeated deliveries of the same code together.
package verify

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.withmatt.com/otpwatch/internal/gmail"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// DefaultPhrases are the lead-ins of the same notification in English and
// Chinese. Order matters: the first phrase that matches wins.
var DefaultPhrases = []string{
	"Your Poe verification code is:",
	"您的Poe验证码是：",
}

// Extractor finds a code following one of a fixed list of phrases.
type Extractor struct {
	patterns []*regexp.Regexp
}

// NewExtractor compiles one pattern per phrase. Whitespace inside a phrase
// matches any run of whitespace, since cleaned HTML may split it across
// lines.
func NewExtractor(phrases []string) (*Extractor, error) {
	if len(phrases) == 0 {
		return nil, errors.New("no verification phrases configured")
	}
	e := &Extractor{patterns: make([]*regexp.Regexp, 0, len(phrases))}
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		if len(words) == 0 {
			return nil, fmt.Errorf("empty verification phrase %q", phrase)
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		expr := strings.Join(words, `\s+`) + fmt.Sprintf(`\s*(\d{%d})(?:\D|$)`, CodeLength)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile phrase %q: %w", phrase, err)
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

var defaultExtractor = func() *Extractor {
	e, err := NewExtractor(DefaultPhrases)
	if err != nil {
		panic(err)
	}
	return e
}()

// Default returns the extractor for DefaultPhrases.
func Default() *Extractor {
	return defaultExtractor
}

// ExtractCode runs the default extractor.
func ExtractCode(text string) (string, bool) {
	return defaultExtractor.Extract(text)
}

// Extract returns the first code found after the first phrase that matches
// anywhere in text.
func (e *Extractor) Extract(text string) (string, bool) {
	for _, re := range e.patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Group is one run of deliveries carrying the same code.
type Group struct {
	Code string `json:"code"`
	// Dates are formatted receipt dates, newest first.
	Dates []string `json:"dates"`
}

func (g Group) Latest() string {
	if len(g.Dates) == 0 {
		return ""
	}
	return g.Dates[0]
}

type occurrence struct {
	code string
	date string
	at   time.Time
}

// Group extracts codes from messages and groups consecutive equal codes in
// newest-first order. A code that reappears after a different code starts a
// new group; each run is treated as its own verification attempt.
func (e *Extractor) Group(messages []gmail.Message) []Group {
	found := make([]occurrence, 0, len(messages))
	for _, m := range messages {
		code, ok := e.Extract(m.Content)
		if !ok {
			continue
		}
		found = append(found, occurrence{code: code, date: m.FormattedDate, at: sortTime(m)})
	}

	slices.SortStableFunc(found, func(a, b occurrence) int {
		return cmp.Compare(b.at.UnixNano(), a.at.UnixNano())
	})

	var groups []Group
	for _, o := range found {
		if n := len(groups); n > 0 && groups[n-1].Code == o.code {
			groups[n-1].Dates = append(groups[n-1].Dates, o.date)
			continue
		}
		groups = append(groups, Group{Code: o.code, Dates: []string{o.date}})
	}
	return groups
}

// GroupCodes runs Group with the default extractor.
func GroupCodes(messages []gmail.Message) []Group {
	return defaultExtractor.Group(messages)
}

// sortTime is the instant a message was sent according to its Date header.
// FormattedDate drops the zone, so it is display only. Messages whose header
// never parsed fall back to their receipt time.
func sortTime(m gmail.Message) time.Time {
	if t, ok := gmail.ParseDate(m.Date); ok {
		return t
	}
	return m.Received()
}
