package format

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/completions"
)

// OutputFormat represents the format for non-interactive mode output
type OutputFormat string

const (
	// TextFormat is plain text output (default)
	TextFormat OutputFormat = "text"

	// JSONFormat is output wrapped in a JSON object
	JSONFormat OutputFormat = "json"

	// HTMLFormat is the enriched body markup
	HTMLFormat OutputFormat = "html"

	// MarkdownFormat converts the enriched markup back to markdown
	MarkdownFormat OutputFormat = "markdown"
)

// SupportedFormats lists every format in help order.
var SupportedFormats = []OutputFormat{TextFormat, JSONFormat, HTMLFormat, MarkdownFormat}

// IsValid checks if the output format is valid
func (f OutputFormat) IsValid() bool {
	for _, s := range SupportedFormats {
		if f == s {
			return true
		}
	}
	return false
}

// String returns the string representation of the output format
func (f OutputFormat) String() string {
	return string(f)
}

// Parse converts a flag value into an OutputFormat.
func Parse(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
	return f, nil
}

// CodeBlock is the JSON view of one code block.
type CodeBlock struct {
	Node body.NodeID `json:"node"`
	body.CodeBlockState
}

// Body is the JSON view of an enriched tree.
type Body struct {
	Source     string              `json:"source,omitempty"`
	TreeID     string              `json:"treeId"`
	HTML       string              `json:"html"`
	Text       string              `json:"text"`
	Chips      []body.ChipInstance `json:"chips"`
	CodeBlocks []CodeBlock         `json:"codeBlocks"`
}

// NewBody snapshots tree for output. source names where the body came
// from and may be empty.
func NewBody(source string, tree *body.Tree) (Body, error) {
	text, err := PlainText(tree)
	if err != nil {
		return Body{}, err
	}
	out := Body{
		Source: source,
		TreeID: tree.ID(),
		HTML:   tree.HTML(),
		Text:   text,
		Chips:  tree.Chips(),
	}
	for _, id := range tree.CodeBlocks() {
		st, _ := tree.CodeBlock(id)
		out.CodeBlocks = append(out.CodeBlocks, CodeBlock{Node: id, CodeBlockState: st})
	}
	return out, nil
}

// PlainText is the readable text of tree without line-number gutters.
func PlainText(tree *body.Tree) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tree.HTML()))
	if err != nil {
		return "", fmt.Errorf("failed to parse body: %w", err)
	}
	doc.Find(".mx_EventTile_lineNumbers").Remove()
	return doc.Find("body").Text(), nil
}

// FormatBody formats an enriched tree according to the specified format
func FormatBody(source string, tree *body.Tree, format OutputFormat) (string, error) {
	switch format {
	case TextFormat:
		return PlainText(tree)
	case HTMLFormat:
		return tree.HTML(), nil
	case MarkdownFormat:
		converter := md.NewConverter("", true, nil)
		out, err := converter.ConvertString(tree.InnerHTML(tree.Root()))
		if err != nil {
			return "", fmt.Errorf("failed to convert to markdown: %w", err)
		}
		return out, nil
	case JSONFormat:
		b, err := NewBody(source, tree)
		if err != nil {
			return "", err
		}
		return marshal(b)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// FormatCompletions formats ranked completion groups.
func FormatCompletions(groups []completions.ProviderCompletions, format OutputFormat) (string, error) {
	var sb strings.Builder
	switch format {
	case TextFormat:
		for _, g := range groups {
			sb.WriteString(titleStyle.Render(g.Name))
			sb.WriteByte('\n')
			for _, r := range g.Results {
				line := r.Title + " " + r.Completion
				if r.Presentation != nil {
					line = r.Presentation(lipgloss.NewStyle())
				}
				fmt.Fprintf(&sb, "  %s\n", line)
			}
		}
		return strings.TrimSuffix(sb.String(), "\n"), nil
	case MarkdownFormat:
		for _, g := range groups {
			fmt.Fprintf(&sb, "### %s\n\n", g.Name)
			for _, r := range g.Results {
				fmt.Fprintf(&sb, "- `%s` %s\n", r.Completion, r.Title)
			}
			sb.WriteByte('\n')
		}
		return strings.TrimSpace(sb.String()), nil
	case HTMLFormat:
		for _, g := range groups {
			fmt.Fprintf(&sb, "<section data-provider=\"%s\"><h3>%s</h3><ul>", html.EscapeString(g.ProviderID), html.EscapeString(g.Name))
			for _, r := range g.Results {
				fmt.Fprintf(&sb, "<li aria-label=\"%s\">%s</li>", html.EscapeString(r.AriaLabel), html.EscapeString(r.Title))
			}
			sb.WriteString("</ul></section>")
		}
		return sb.String(), nil
	case JSONFormat:
		if groups == nil {
			groups = []completions.ProviderCompletions{}
		}
		return marshal(groups)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func marshal(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}
