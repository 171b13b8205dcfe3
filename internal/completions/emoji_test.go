package completions

import (
	"fmt"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/emote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emotes(names ...string) []emote.Emote {
	out := make([]emote.Emote, len(names))
	for i, n := range names {
		out[i] = emote.Emote{Shortcode: n, URL: "mxc://example.org/" + fmt.Sprint(i), Ordinal: i}
	}
	return out
}

func titles(rs []CompletionResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return out
}

func TestEmojiProviderRanking(t *testing.T) {
	t.Parallel()

	p := NewEmojiProvider(emotes(":wink:", ":winking_face:", ":win:"), config.DefaultFlags())
	got := p.GetCompletions(":win", Selection{Start: 4, End: 4}, false, -1)
	assert.Equal(t, []string{":win:", ":wink:", ":winking_face:"}, titles(got))
}

func TestEmojiProviderResultShape(t *testing.T) {
	t.Parallel()

	p := NewEmojiProvider(emotes(":blobcat:"), config.DefaultFlags())
	got := p.GetCompletions("hi :blob", Selection{Start: 8, End: 8}, false, -1)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "![:blobcat:](emoji-hack-fixme:mxc://example.org/0)", r.Completion)
	assert.Equal(t, r.Completion, r.AriaLabel)
	assert.Equal(t, Range{Start: 3, End: 8}, r.Range)
	assert.Equal(t, "custom-emoji", r.ProviderID)
	assert.Equal(t, ":blobcat:", r.RawData.DisplayKey)
	require.NotNil(t, r.Presentation)
	assert.Contains(t, r.Presentation(lipgloss.NewStyle()), ":blobcat:")
}

func TestEmojiProviderDisabled(t *testing.T) {
	t.Parallel()

	flags := config.DefaultFlags()
	flags.SuggestEmoji = false
	p := NewEmojiProvider(emotes(":wink:"), flags)
	assert.Empty(t, p.GetCompletions(":wi", Selection{Start: 3, End: 3}, true, -1))
	assert.NotEmpty(t, p.WithFlags(config.DefaultFlags()).GetCompletions(":wi", Selection{Start: 3, End: 3}, false, -1))
}

func TestEmojiProviderNoToken(t *testing.T) {
	t.Parallel()

	p := NewEmojiProvider(emotes(":wink:"), config.DefaultFlags())
	assert.Empty(t, p.GetCompletions(":a :b", Selection{Start: 0, End: 5}, false, -1))
	assert.Empty(t, NewEmojiProvider(nil, config.DefaultFlags()).GetCompletions(":w", Selection{Start: 2, End: 2}, false, -1))
}

func TestEmojiProviderCapsResults(t *testing.T) {
	t.Parallel()

	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf(":e%02d:", i)
	}
	p := NewEmojiProvider(emotes(names...), config.DefaultFlags())

	for _, limit := range []int{-1, 0, 5, 30, 100} {
		got := p.GetCompletions(":e", Selection{Start: 2, End: 2}, false, limit)
		assert.LessOrEqual(t, len(got), MaxCompletions, "limit %d", limit)
	}
	assert.Len(t, p.GetCompletions(":e", Selection{Start: 2, End: 2}, false, -1), MaxCompletions)
	assert.Len(t, p.GetCompletions(":e", Selection{Start: 2, End: 2}, false, 5), 5)
	assert.Empty(t, p.GetCompletions(":e", Selection{Start: 2, End: 2}, false, 0))
}

func TestEmojiProviderForceBrowsesAll(t *testing.T) {
	t.Parallel()

	p := NewEmojiProvider(emotes(":b:", ":a:"), config.DefaultFlags())
	got := p.GetCompletions("hi ", Selection{Start: 3, End: 3}, true, -1)
	assert.Equal(t, []string{":b:", ":a:"}, titles(got))
	assert.Equal(t, Range{Start: 3, End: 3}, got[0].Range)
}

func TestEmojiProviderDeterministic(t *testing.T) {
	t.Parallel()

	p := NewEmojiProvider(emotes(":cat:", ":cat_face:", ":copycat:", ":scat:", ":cat2:"), config.DefaultFlags())
	first := titles(p.GetCompletions("cat", Selection{Start: 3, End: 3}, false, -1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, titles(p.GetCompletions("cat", Selection{Start: 3, End: 3}, false, -1)))
	}
	assert.Equal(t, []string{":cat:", ":cat2:", ":cat_face:", ":scat:", ":copycat:"}, first)
}

func TestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		in    []Candidate
		want  []string
	}{
		{
			name:  "duplicates collapse to first",
			token: ":a",
			in: []Candidate{
				{DisplayKey: ":ab:", Payload: "first", Ordinal: 0},
				{DisplayKey: ":a:", Ordinal: 1},
				{DisplayKey: ":ab:", Payload: "second", Ordinal: 2},
			},
			want: []string{":a:", ":ab:"},
		},
		{
			name:  "single rune token ignores length",
			token: "a",
			in:    candidates(":abcdef:", ":ab:"),
			want:  []string{":abcdef:", ":ab:"},
		},
		{
			name:  "case sensitive index puts absent last",
			token: "Ok",
			in:    candidates(":ok:", ":Okay:"),
			want:  []string{":Okay:", ":ok:"},
		},
		{
			name:  "equal keys fall back to ordinal",
			token: "xy",
			in: []Candidate{
				{DisplayKey: ":xyb:", Ordinal: 5},
				{DisplayKey: ":xya:", Ordinal: 1},
			},
			want: []string{":xya:", ":xyb:"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, displayKeys(Rank(tt.token, tt.in)))
		})
	}

	t.Run("first duplicate payload survives", func(t *testing.T) {
		t.Parallel()
		got := Rank(":ab", []Candidate{
			{DisplayKey: ":ab:", Payload: "first"},
			{DisplayKey: ":ab:", Payload: "second", Ordinal: 1},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].Payload)
	})
}
