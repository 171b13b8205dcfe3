package enrich

import (
	"strings"
	"sync"

	"github.com/sst/chatbody/internal/body"
	"mvdan.cc/xurls/v2"
)

var (
	urlPattern    = sync.OnceValue(xurls.Relaxed)
	schemePattern = sync.OnceValue(xurls.Strict)
)

// linkify wraps URLs found in plain text in anchors and returns how many
// it created. Only URLs with a scheme or a www. host qualify.
func linkify(tree *body.Tree) int {
	created := 0
	texts := tree.Find(tree.Root(), func(n *body.Node) bool {
		return n.Kind() == body.KindText && !n.Has(body.MarkLinksScanned)
	})
	for _, t := range texts {
		if tree.InsideAny(t, "a", "code", "pre") {
			tree.Mark(t, body.MarkLinksScanned)
			continue
		}
		var segs []body.Segment
		for _, loc := range urlPattern().FindAllStringIndex(tree.Node(t).Text(), -1) {
			if _, ok := linkHref(tree.Node(t).Text()[loc[0]:loc[1]]); ok {
				segs = append(segs, body.Segment{Start: loc[0], End: loc[1]})
			}
		}
		if len(segs) == 0 {
			tree.Mark(t, body.MarkLinksScanned)
			continue
		}
		tree.SplitText(t, segs, body.MarkLinksScanned, func(_ int, text string) body.NodeID {
			href, _ := linkHref(text)
			a := tree.NewElement(body.KindElement, "a",
				body.Attr{Key: "href", Val: href},
				body.Attr{Key: "rel", Val: "noreferrer noopener"},
				body.Attr{Key: "target", Val: "_blank"},
			)
			tree.AppendChild(a, tree.NewText(text, body.MarkLabel))
			created++
			return a
		})
	}
	return created
}

func linkHref(match string) (string, bool) {
	switch {
	case strings.HasPrefix(strings.ToLower(match), "www."):
		return "https://" + match, true
	case isSchemeURL(match):
		return match, true
	}
	return "", false
}

// isSchemeURL reports whether all of match is a URL with a known or
// authority-bearing scheme. host:port text is not.
func isSchemeURL(match string) bool {
	loc := schemePattern().FindStringIndex(match)
	return loc != nil && loc[0] == 0 && loc[1] == len(match)
}
