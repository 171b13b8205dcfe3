package completions

import "github.com/charmbracelet/lipgloss"

// Candidate is a record eligible to be suggested, e.g. one custom emote.
type Candidate struct {
	// DisplayKey is the text shown and matched, e.g. ":wink:".
	DisplayKey string `json:"displayKey"`

	// Payload is an opaque reference carried into the insertion markup.
	Payload string `json:"payload"`

	// Ordinal is the record's position in its source set. It is only
	// used as the last tie-break when ranking.
	Ordinal int `json:"ordinal"`
}

// Range is a half-open span of rune offsets into the composer text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Selection is the composer caret or selection, in rune offsets.
type Selection = Range

// CompletionResult is a data-only completion: what to insert, where, and how
// to present it. Results are never mutated after creation.
type CompletionResult struct {
	// Completion is the markup that replaces Range when chosen.
	Completion string `json:"completion"`

	Title     string `json:"title"`
	AriaLabel string `json:"ariaLabel"`

	// Range is the exact span of the token the completion replaces.
	Range Range `json:"range"`

	// ProviderID names the provider that produced the result.
	ProviderID string `json:"providerId"`

	// Presentation renders the completion pill. It does no I/O.
	Presentation func(lipgloss.Style) string `json:"-"`

	// RawData is the candidate the result was built from.
	RawData Candidate `json:"candidate"`
}
