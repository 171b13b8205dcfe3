package enrich

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/sst/chatbody/internal/body"
)

// ClassHighlighted marks code whose tokens were wrapped in chroma classes.
const ClassHighlighted = "chroma"

// explicitLanguage returns the language named by a language-x class on
// code. Names starting with an underscore mean "no language".
func explicitLanguage(tree *body.Tree, code body.NodeID) string {
	v, _ := tree.Node(code).Attr("class")
	for _, c := range strings.Fields(v) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok && lang != "" && !strings.HasPrefix(lang, "_") {
			return lang
		}
	}
	return ""
}

// scheduleHighlight queues highlighting for pre once. Blocks without a
// language are left alone unless auto-detection is on.
func (p *Pipeline) scheduleHighlight(tree *body.Tree, pre body.NodeID, autoDetect bool) {
	n := tree.Node(pre)
	if n.Has(body.MarkHighlightQueued) || n.Has(body.MarkHighlighted) {
		return
	}
	st, ok := tree.CodeBlock(pre)
	if !ok || (st.Language == "" && !autoDetect) {
		return
	}
	tree.Mark(pre, body.MarkHighlightQueued)

	treeID := tree.ID()
	p.queue.Submit(treeID, pre, func() {
		if tree.Disposed() {
			return
		}
		if err := highlight(tree, pre); err != nil {
			slog.Warn("highlighting failed", "tree", treeID, "node", pre, "error", err)
		}
	})
}

// highlight tokenises the block's code and replaces its text with spans.
// On error the block is left untouched.
func highlight(tree *body.Tree, pre body.NodeID) error {
	st, ok := tree.CodeBlock(pre)
	if !ok || tree.Node(st.Code) == nil {
		return fmt.Errorf("code block %d is gone", pre)
	}
	text := tree.TextContent(st.Code)

	var lexer chroma.Lexer
	if st.Language != "" {
		lexer = lexerFor(st.Language)
	} else {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		return fmt.Errorf("no lexer for language %q", st.Language)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenising %s: %w", lexer.Config().Name, err)
	}
	tokens := it.Tokens()

	for _, c := range tree.Node(st.Code).Children() {
		tree.Remove(c)
	}
	for _, tok := range tokens {
		if tok.Value == "" {
			continue
		}
		class := tokenClass(tok.Type)
		if class == "" {
			tree.AppendChild(st.Code, tree.NewText(tok.Value, body.MarkScanned))
			continue
		}
		span := tree.NewElement(body.KindElement, "span", body.Attr{Key: "class", Val: class})
		tree.AppendChild(span, tree.NewText(tok.Value, body.MarkScanned))
		tree.AppendChild(st.Code, span)
	}

	tree.AddClass(st.Code, ClassHighlighted)
	tree.Mark(pre, body.MarkHighlighted)
	tree.UpdateCodeBlock(pre, func(s *body.CodeBlockState) {
		s.Highlighted = true
		s.Language = strings.ToLower(lexer.Config().Name)
	})
	return nil
}

func tokenClass(t chroma.TokenType) string {
	for _, c := range []chroma.TokenType{t, t.SubCategory(), t.Category()} {
		if class, ok := chroma.StandardTypes[c]; ok {
			return class
		}
	}
	return ""
}
