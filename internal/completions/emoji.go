package completions

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/emote"
)

// MaxCompletions caps every ranked list regardless of the matcher limit.
const MaxCompletions = 20

// EmojiProvider suggests custom emote shortcodes.
type EmojiProvider struct {
	matcher *Matcher
	flags   config.Flags
}

// NewEmojiProvider builds a provider over emotes. A nil or empty pack is
// valid and never suggests anything.
func NewEmojiProvider(emotes []emote.Emote, flags config.Flags) *EmojiProvider {
	candidates := make([]Candidate, 0, len(emotes))
	for _, e := range emotes {
		candidates = append(candidates, Candidate{
			DisplayKey: e.Shortcode,
			Payload:    e.URL,
			Ordinal:    e.Ordinal,
		})
	}
	return &EmojiProvider{
		matcher: NewMatcher(candidates, MatcherOptions{Mode: MatchSubstring}),
		flags:   flags,
	}
}

// WithFlags returns a provider sharing the same candidates but reading
// different settings.
func (p *EmojiProvider) WithFlags(flags config.Flags) *EmojiProvider {
	return &EmojiProvider{matcher: p.matcher, flags: flags}
}

func (p *EmojiProvider) GetId() string {
	return "custom-emoji"
}

func (p *EmojiProvider) GetName() string {
	return "Custom Emoji"
}

func (p *EmojiProvider) GetEmptyMessage() string {
	return "no matching emoji"
}

func (p *EmojiProvider) GetCompletions(query string, selection Selection, force bool, limit int) []CompletionResult {
	if !p.flags.SuggestEmoji {
		return nil
	}

	token, ok := CurrentToken(query, selection, force)
	if !ok {
		return nil
	}

	ranked := Rank(token.Text, p.matcher.Match(token.Text, limit))
	if len(ranked) > MaxCompletions {
		ranked = ranked[:MaxCompletions]
	}

	results := make([]CompletionResult, 0, len(ranked))
	for _, c := range ranked {
		results = append(results, p.result(c, token.Range))
	}
	return results
}

func (p *EmojiProvider) result(c Candidate, rng Range) CompletionResult {
	markup := fmt.Sprintf("![%s](%s:%s)", c.DisplayKey, p.flags.EmoteScheme, c.Payload)
	title := c.DisplayKey
	return CompletionResult{
		Completion: markup,
		Title:      title,
		AriaLabel:  markup,
		Range:      rng,
		ProviderID: p.GetId(),
		RawData:    c,
		Presentation: func(s lipgloss.Style) string {
			return s.Render(title + " " + markup)
		},
	}
}

type scored struct {
	Candidate
	index  int
	length int
}

// Rank deduplicates candidates by DisplayKey, keeping the first, and orders
// them by where token occurs in the key (absent last), then by key length
// when token is longer than one rune, then by Ordinal.
func Rank(token string, candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	list := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.DisplayKey]; dup {
			continue
		}
		seen[c.DisplayKey] = struct{}{}
		list = append(list, scored{
			Candidate: c,
			index:     runeIndex(c.DisplayKey, token),
			length:    utf8.RuneCountInString(c.DisplayKey),
		})
	}

	byLength := utf8.RuneCountInString(token) > 1
	slices.SortStableFunc(list, func(a, b scored) int {
		if c := cmp.Compare(a.index, b.index); c != 0 {
			return c
		}
		if byLength {
			if c := cmp.Compare(a.length, b.length); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})

	out := make([]Candidate, len(list))
	for i, s := range list {
		out[i] = s.Candidate
	}
	return out
}

// runeIndex is the case-sensitive rune offset of token in key, or MaxInt
// when absent.
func runeIndex(key, token string) int {
	i := strings.Index(key, token)
	if i < 0 {
		return math.MaxInt
	}
	return utf8.RuneCountInString(key[:i])
}
