package completions

import "unicode"

// Token is the run of non-whitespace text the caret sits in.
type Token struct {
	Text  string
	Range Range
}

// CurrentToken finds the token to complete. Tokens are maximal runs of
// non-whitespace runes; one is used only when the whole selection lies
// inside it, its end included, so a selection spanning words yields
// nothing. With force, a collapsed caret outside any token yields an empty
// token at the caret.
func CurrentToken(query string, sel Selection, force bool) (Token, bool) {
	runes := []rune(query)
	if sel.Start > sel.End {
		sel.Start, sel.End = sel.End, sel.Start
	}
	if sel.Start < 0 || sel.End > len(runes) {
		return Token{}, false
	}

	for start := 0; start < len(runes); {
		if unicode.IsSpace(runes[start]) {
			start++
			continue
		}
		end := start
		for end < len(runes) && !unicode.IsSpace(runes[end]) {
			end++
		}
		if sel.Start >= start && sel.End <= end {
			return Token{
				Text:  string(runes[start:end]),
				Range: Range{Start: start, End: end},
			}, true
		}
		start = end
	}

	if force && sel.Start == sel.End {
		return Token{Range: Range{Start: sel.Start, End: sel.End}}, true
	}
	return Token{}, false
}
