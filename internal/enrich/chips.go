package enrich

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/config"
	"maunium.net/go/mautrix/id"
)

// bareIdentifier finds user, alias and room identifiers standing on their
// own in text.
var bareIdentifier = regexp.MustCompile(`(?:^|[\s(\[<])([@#!][\w.=\-/+]+:(?:[A-Za-z0-9\-]+\.)*[A-Za-z0-9\-]+(?::\d{1,5})?)`)

// substituteChips turns permalink anchors and bare identifiers into chips
// and returns how many it created.
func substituteChips(tree *body.Tree, flags config.Flags) int {
	created := 0
	limit := flags.MaxChips
	if limit <= 0 {
		limit = config.DefaultMaxChips
	}
	full := func() bool {
		if tree.ChipCount() < limit {
			return false
		}
		slog.Debug("chip limit reached", "tree", tree.ID(), "limit", limit)
		return true
	}

	anchors := tree.Find(tree.Root(), func(n *body.Node) bool {
		return n.IsElement("a") && !n.Has(body.MarkChipsScanned)
	})
	for _, a := range anchors {
		if full() {
			break
		}
		if tree.InsideAny(a, "code", "pre") {
			continue
		}
		href, _ := tree.Node(a).Attr("href")
		kind, ident, ok := parsePermalink(href, flags.PermalinkPrefix)
		if !ok {
			continue
		}
		label := strings.TrimSpace(tree.TextContent(a))
		if label == "" {
			label = ident
		}
		chip := tree.NewChip(kind, ident, label, href)
		if tree.ReplaceWith(a, chip) {
			created++
		}
	}

	texts := tree.Find(tree.Root(), func(n *body.Node) bool {
		return n.Kind() == body.KindText && !n.Has(body.MarkChipsScanned)
	})
	for _, t := range texts {
		if tree.InsideAny(t, "a", "code", "pre") {
			tree.Mark(t, body.MarkChipsScanned)
			continue
		}
		matches := bareIdentifier.FindAllStringSubmatchIndex(tree.Node(t).Text(), -1)
		var segs []body.Segment
		for _, m := range matches {
			if _, ok := identifierKind(tree.Node(t).Text()[m[2]:m[3]]); ok {
				segs = append(segs, body.Segment{Start: m[2], End: m[3]})
			}
		}
		if len(segs) == 0 {
			tree.Mark(t, body.MarkChipsScanned)
			continue
		}
		tree.SplitText(t, segs, body.MarkChipsScanned, func(_ int, ident string) body.NodeID {
			if full() {
				return body.NoNode
			}
			kind, _ := identifierKind(ident)
			created++
			return tree.NewChip(kind, ident, ident, flags.PermalinkPrefix+ident)
		})
	}
	return created
}

// parsePermalink extracts the identifier a permalink points at, dropping
// the via query.
func parsePermalink(href, prefix string) (body.ChipKind, string, bool) {
	if prefix == "" {
		prefix = config.DefaultPermalinkPrefix
	}
	rest, ok := strings.CutPrefix(href, prefix)
	if !ok || rest == "" {
		return "", "", false
	}
	rest, _, _ = strings.Cut(rest, "?")
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	room, evt, hasEvent := strings.Cut(rest, "/")
	if hasEvent {
		if !strings.HasPrefix(evt, "$") {
			return "", "", false
		}
		if k, ok := identifierKind(room); !ok || k == body.ChipUser {
			return "", "", false
		}
		return body.ChipEvent, rest, true
	}
	kind, ok := identifierKind(rest)
	return kind, rest, ok
}

func identifierKind(s string) (body.ChipKind, bool) {
	if len(s) < 2 {
		return "", false
	}
	switch s[0] {
	case '@':
		if _, _, err := id.UserID(s).Parse(); err != nil {
			return "", false
		}
		return body.ChipUser, true
	case '#':
		if !strings.Contains(s[1:], ":") {
			return "", false
		}
		return body.ChipRoomAlias, true
	case '!':
		if !strings.Contains(s[1:], ":") {
			return "", false
		}
		return body.ChipRoom, true
	}
	return "", false
}
