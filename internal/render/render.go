// Package render turns message content into the initial body tree that the
// enrichment passes work on.
package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sst/chatbody/internal/body"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"maunium.net/go/mautrix/event"
)

const (
	ClassBody            = "mx_EventTile_body"
	ClassMarkdown        = "markdown-body"
	ClassBigEmoji        = "mx_EventTile_bigEmoji"
	ClassSearchHighlight = "mx_EventTile_searchHighlight"
)

// Options is the flags bundle the message view passes with each body.
type Options struct {
	StripReplyFallback bool     `json:"stripReplyFallback"`
	DisableBigEmoji    bool     `json:"disableBigEmoji"`
	HighlightTerms     []string `json:"highlightTerms,omitempty"`

	// Markdown renders a plain body as markdown instead of literal text.
	Markdown bool `json:"markdown,omitempty"`
}

var policy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("mx-reply", "font", "del", "span", "details", "summary")
	p.AllowAttrs("data-mx-bg-color", "data-mx-color", "color").OnElements("font", "span")
	p.AllowAttrs("data-mx-spoiler").OnElements("span")
	p.AllowAttrs("data-mx-emoticon", "height", "width", "alt", "title").OnElements("img")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	p.AllowURLSchemes("http", "https", "ftp", "mailto", "magnet", "mxc")
	return p
})

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// IsHTML reports whether content carries a formatted body to render.
func IsHTML(content *event.MessageEventContent) bool {
	return content.Format == event.FormatHTML && content.FormattedBody != ""
}

// BodyToTree renders content into a fresh tree. Chips later created in the
// tree are mounted through host. HighlightTerms is not applied here; it
// runs after chips and links so it never splits an identifier or a URL.
func BodyToTree(content *event.MessageEventContent, opts Options, host body.ChipHost) (*body.Tree, error) {
	src, isHTML, err := source(content, opts)
	if err != nil {
		return nil, err
	}

	classes := []string{ClassBody}
	if isHTML {
		classes = append(classes, ClassMarkdown)
	}
	tree, err := body.FromHTML(policy().Sanitize(src), host, classes...)
	if err != nil {
		return nil, err
	}

	if opts.StripReplyFallback {
		for _, id := range tree.Find(tree.Root(), func(n *body.Node) bool { return n.IsElement("mx-reply") }) {
			tree.Remove(id)
		}
	}
	if !opts.DisableBigEmoji && isEmojiBody(tree) {
		tree.AddClass(tree.Root(), ClassBigEmoji)
	}
	return tree, nil
}

func source(content *event.MessageEventContent, opts Options) (string, bool, error) {
	if IsHTML(content) {
		return content.FormattedBody, true, nil
	}

	text := content.Body
	if opts.StripReplyFallback {
		text = StripPlainReply(text)
	}
	if opts.Markdown {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(text), &buf); err != nil {
			return "", false, fmt.Errorf("rendering markdown: %w", err)
		}
		return buf.String(), true, nil
	}
	return html.EscapeString(text), false, nil
}

// StripPlainReply drops the "> " quoted fallback that precedes a plain-text
// reply.
func StripPlainReply(text string) string {
	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) && strings.HasPrefix(lines[i], "> ") {
		i++
	}
	if i == 0 {
		return text
	}
	if i < len(lines) && lines[i] == "" {
		i++
	}
	return strings.Join(lines[i:], "\n")
}

// HighlightTerms wraps case-insensitive occurrences of terms in text outside
// code. Text inside links and chip labels is highlighted in place, leaving
// the link or chip whole. It returns how many highlights it added.
func HighlightTerms(tree *body.Tree, terms []string) int {
	re := termsRegexp(terms)
	if re == nil {
		return 0
	}

	added := 0
	inCode := func(n *body.Node) bool { return n.IsElement("code") || n.IsElement("pre") }
	texts := tree.Find(tree.Root(), func(n *body.Node) bool {
		return n.Kind() == body.KindText && !n.Has(body.MarkSearchHighlighted)
	})
	for _, id := range texts {
		if tree.Closest(id, inCode) != body.NoNode {
			tree.Mark(id, body.MarkSearchHighlighted)
			continue
		}
		locs := re.FindAllStringIndex(tree.Node(id).Text(), -1)
		if len(locs) == 0 {
			tree.Mark(id, body.MarkSearchHighlighted)
			continue
		}
		segs := make([]body.Segment, len(locs))
		for i, l := range locs {
			segs[i] = body.Segment{Start: l[0], End: l[1]}
		}
		tree.SplitText(id, segs, body.MarkSearchHighlighted, func(_ int, s string) body.NodeID {
			span := tree.NewElement(body.KindElement, "span", body.Attr{Key: "class", Val: ClassSearchHighlight})
			tree.AppendChild(span, tree.NewText(s, body.MarkScanned))
			added++
			return span
		})
	}
	return added
}

func termsRegexp(terms []string) *regexp.Regexp {
	var quoted []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	// Longest first so overlapping terms prefer the widest match.
	slices.SortFunc(quoted, func(a, b string) int { return len(b) - len(a) })
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}
