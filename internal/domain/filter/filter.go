// Package filter screens message text against banned phrases and link
// patterns, normalizing leetspeak substitutions first so "fr33" and "free"
// match the same phrase.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatkeeper/keeper/internal/domain/similarity"
)

// Violation classifies a screening hit.
type Violation int

const (
	// ViolationNone means the text passed every check.
	ViolationNone Violation = iota
	// ViolationAdvertising means a link or domain outside the allow list.
	ViolationAdvertising
	// ViolationBannedWord means a banned phrase matched.
	ViolationBannedWord
)

// Reason returns the violation label used in events and metrics.
func (v Violation) Reason() string {
	switch v {
	case ViolationAdvertising:
		return "advertising"
	case ViolationBannedWord:
		return "banned_word"
	default:
		return ""
	}
}

// Lists supplies the externally owned phrase sets. Implementations must be
// safe for concurrent readers; the filter never mutates the returned slices.
type Lists interface {
	// Banned returns the banned phrases, already lowercased.
	Banned(ctx context.Context) ([]string, error)
	// AllowList returns substrings that legitimize a detected link.
	AllowList(ctx context.Context) ([]string, error)
}

// leetReplacer undoes the common digit and symbol substitutions. Separators
// are dropped so "f_r.e-e" collapses to "free".
var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
	"(", "c",
	"+", "t",
	"_", "",
	".", "",
	",", "",
	"-", "",
)

// Normalize lowercases text and undoes leetspeak substitutions.
func Normalize(text string) string {
	return leetReplacer.Replace(strings.ToLower(text))
}

// Link-shaped patterns checked against the raw lowercased text. The domain
// pattern is deliberately loose; the allow list carves out legitimate hits.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(https?://|www\.|t\.me/)\S+`),
	regexp.MustCompile(`[a-zA-Z0-9-]{2,}\.[a-zA-Z]{2,6}\b`),
}

// Filter screens text. Safe for concurrent use; compiled phrase patterns
// are cached across calls.
type Filter struct {
	lists     Lists
	fuzzyMin  float64
	exactMax  int
	boundsFor *xsync.MapOf[string, *regexp.Regexp]
}

// Option applies a configuration option to the Filter.
type Option func(*Filter)

// WithFuzzyThreshold sets the similarity ratio above which a token matches
// a banned phrase.
func WithFuzzyThreshold(t float64) Option {
	return func(f *Filter) {
		if t > 0 && t < 1 {
			f.fuzzyMin = t
		}
	}
}

// New constructs a Filter over a phrase-list provider.
func New(lists Lists, opts ...Option) *Filter {
	f := &Filter{
		lists:     lists,
		fuzzyMin:  0.85,
		exactMax:  3,
		boundsFor: xsync.NewMapOf[string, *regexp.Regexp](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check screens text and returns the first violation found. The link pass
// runs before the banned-phrase pass, so a disallowed link wins even when
// the text also contains a banned word.
func (f *Filter) Check(ctx context.Context, text string) (Violation, error) {
	if text == "" {
		return ViolationNone, nil
	}
	lower := strings.ToLower(text)

	if hasLink(lower) {
		allowed, err := f.lists.AllowList(ctx)
		if err != nil {
			return ViolationNone, fmt.Errorf("load allow list: %w", err)
		}
		if !coveredByAllowList(lower, allowed) {
			return ViolationAdvertising, nil
		}
	}

	banned, err := f.lists.Banned(ctx)
	if err != nil {
		return ViolationNone, fmt.Errorf("load banned phrases: %w", err)
	}
	if f.matchesBanned(text, banned) {
		return ViolationBannedWord, nil
	}
	return ViolationNone, nil
}

// matchesBanned reports whether the normalized text contains any banned
// phrase, by boundary match, exact token equality for short phrases, or
// fuzzy token similarity for longer ones.
func (f *Filter) matchesBanned(text string, banned []string) bool {
	clean := Normalize(text)
	tokens := strings.Fields(clean)

	for _, phrase := range banned {
		if phrase == "" {
			continue
		}
		if f.boundary(phrase).MatchString(clean) {
			return true
		}
		short := len([]rune(phrase)) <= f.exactMax
		for _, tok := range tokens {
			if short {
				if tok == phrase {
					return true
				}
				continue
			}
			if similarity.Ratio(tok, phrase) > f.fuzzyMin {
				return true
			}
		}
	}
	return false
}

// boundary returns the cached whole-phrase pattern: the phrase bracketed by
// start/end, whitespace, or any non-alphanumeric rune (Latin and Cyrillic).
func (f *Filter) boundary(phrase string) *regexp.Regexp {
	re, _ := f.boundsFor.LoadOrCompute(phrase, func() *regexp.Regexp {
		const edge = `[^a-zа-яё0-9]`
		return regexp.MustCompile(`(^|\s|` + edge + `)` + regexp.QuoteMeta(phrase) + `($|\s|` + edge + `)`)
	})
	return re
}

func hasLink(lower string) bool {
	for _, re := range linkPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func coveredByAllowList(lower string, allowed []string) bool {
	for _, item := range allowed {
		if item != "" && strings.Contains(lower, item) {
			return true
		}
	}
	return false
}
