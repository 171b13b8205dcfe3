package render

import (
	"strings"

	"github.com/sst/chatbody/internal/body"
	"maunium.net/go/mautrix/event"
)

// Preview renders content for a composer preview. It reports false when
// the render would show nothing beyond the plain body.
func Preview(content *event.MessageEventContent, opts Options, host body.ChipHost) (*body.Tree, bool, error) {
	opts.StripReplyFallback = false
	tree, err := BodyToTree(content, opts, host)
	if err != nil {
		return nil, false, err
	}
	return tree, !isPlain(tree, tree.Root(), content.Body), nil
}

func isPlain(tree *body.Tree, id body.NodeID, text string) bool {
	var kids []body.NodeID
	for _, c := range tree.Node(id).Children() {
		n := tree.Node(c)
		if n.Kind() == body.KindText && strings.TrimSpace(n.Text()) == "" {
			continue
		}
		kids = append(kids, c)
	}
	switch len(kids) {
	case 0:
		return true
	case 1:
		n := tree.Node(kids[0])
		if n.Kind() == body.KindText {
			return strings.TrimSpace(n.Text()) == strings.TrimSpace(text)
		}
		if n.IsElement("p") && len(n.Attrs()) == 0 {
			return isPlain(tree, kids[0], text)
		}
	}
	return false
}
