package render

import (
	"strings"
	"unicode"

	"github.com/sst/chatbody/internal/body"
)

// isEmojiBody reports whether the body is nothing but emoji, counting
// custom emoticon images.
func isEmojiBody(tree *body.Tree) bool {
	emoticons := 0
	onlyEmoticons := true
	tree.Walk(tree.Root(), func(n *body.Node) bool {
		if n.IsElement("img") {
			if _, ok := n.Attr("data-mx-emoticon"); ok {
				emoticons++
			} else {
				onlyEmoticons = false
			}
		}
		return true
	})
	if !onlyEmoticons {
		return false
	}

	text := strings.TrimSpace(tree.TextContent(tree.Root()))
	if text == "" {
		return emoticons > 0
	}
	for _, r := range text {
		if !isEmojiRune(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isEmojiRune(r rune) bool {
	switch {
	case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return unicode.Is(unicode.So, r)
}
