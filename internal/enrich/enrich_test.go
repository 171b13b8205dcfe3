package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/render"
	"github.com/sst/chatbody/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"maunium.net/go/mautrix/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClipboard struct {
	err  error
	text []string
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = append(c.text, text)
	return nil
}

type countingHost struct {
	mounted, unmounted int
}

func (h *countingHost) MountChip(string, body.ChipInstance)   { h.mounted++ }
func (h *countingHost) UnmountChip(string, body.ChipInstance) { h.unmounted++ }

func newPipeline(t *testing.T, clip Clipboard) (*Pipeline, status.Service) {
	t.Helper()
	st := status.NewService()
	if clip == nil {
		clip = &fakeClipboard{}
	}
	p := NewPipeline(NewWorkQueue(), WithStatus(st), WithClipboard(clip))
	t.Cleanup(func() {
		p.Shutdown()
		st.Shutdown()
	})
	return p, st
}

func testOptions() Options {
	flags := config.DefaultFlags()
	flags.ShowCodeLineNumbers = false
	return Options{Flags: flags, Layout: LineLayout{LineHeight: 10, Viewport: 100}}
}

func htmlBody(formatted string) *event.MessageEventContent {
	return &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          formatted,
		Format:        event.FormatHTML,
		FormattedBody: formatted,
	}
}

func plainBody(text string) *event.MessageEventContent {
	return &event.MessageEventContent{MsgType: event.MsgText, Body: text}
}

func renderTree(t *testing.T, content *event.MessageEventContent, host body.ChipHost) *body.Tree {
	t.Helper()
	tree, err := render.BodyToTree(content, render.Options{}, host)
	require.NoError(t, err)
	t.Cleanup(tree.Dispose)
	return tree
}

func query(t *testing.T, tree *body.Tree) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(tree.HTML()))
	require.NoError(t, err)
	return d
}

func TestChipSubstitution(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)
	host := &countingHost{}

	content := htmlBody(`<a href="https://matrix.to/#/@alice:example.org">Alice</a> and #room:example.org plus <code>@bob:example.org</code>`)
	tree := renderTree(t, content, host)
	p.Enrich(tree, content, testOptions())

	require.Equal(t, 2, tree.ChipCount())
	assert.Equal(t, 2, host.mounted)

	chips := tree.Chips()
	assert.Equal(t, body.ChipUser, chips[0].Kind)
	assert.Equal(t, "@alice:example.org", chips[0].Identifier)
	assert.Equal(t, "Alice", chips[0].Label)
	assert.Equal(t, body.ChipRoomAlias, chips[1].Kind)
	assert.Equal(t, "https://matrix.to/#/#room:example.org", chips[1].Href)

	d := query(t, tree)
	assert.Equal(t, "Alice", d.Find("span.mx_UserPill").Text())
	assert.Zero(t, d.Find("code span").Length())
	assert.Zero(t, d.Find("a").Length())

	tree.Dispose()
	assert.Equal(t, 2, host.unmounted)
}

func TestChipLimit(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := plainBody("@a:example.org @b:example.org")
	tree := renderTree(t, content, nil)
	opts := testOptions()
	opts.Flags.MaxChips = 1
	p.Enrich(tree, content, opts)

	assert.Equal(t, 1, tree.ChipCount())
	assert.Equal(t, "@a:example.org @b:example.org", tree.TextContent(tree.Root()))
}

func TestParsePermalink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href  string
		kind  body.ChipKind
		ident string
		ok    bool
	}{
		{"https://matrix.to/#/@alice:example.org", body.ChipUser, "@alice:example.org", true},
		{"https://matrix.to/#/%23room:example.org?via=example.org", body.ChipRoomAlias, "#room:example.org", true},
		{"https://matrix.to/#/!abc:example.org", body.ChipRoom, "!abc:example.org", true},
		{"https://matrix.to/#/!abc:example.org/$evt", body.ChipEvent, "!abc:example.org/$evt", true},
		{"https://matrix.to/#/@alice:example.org/$evt", "", "", false},
		{"https://matrix.to/#/@alice", "", "", false},
		{"https://example.org/#/@alice:example.org", "", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()
			kind, ident, ok := parsePermalink(tt.href, config.DefaultPermalinkPrefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.ident, ident)
		})
	}
}

func TestLinkify(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody(`see https://example.com and www.foo.org, not example.net or example.com:8080/path <code>https://code.example</code> @alice:example.org`)
	tree := renderTree(t, content, nil)
	p.Enrich(tree, content, testOptions())

	d := query(t, tree)
	links := d.Find("a")
	require.Equal(t, 2, links.Length())
	assert.Equal(t, "https://example.com", links.Eq(0).AttrOr("href", ""))
	assert.Equal(t, "https://www.foo.org", links.Eq(1).AttrOr("href", ""))
	assert.Equal(t, "www.foo.org", links.Eq(1).Text())
	assert.Equal(t, "noreferrer noopener", links.Eq(0).AttrOr("rel", ""))
	assert.Equal(t, "_blank", links.Eq(0).AttrOr("target", ""))
	assert.Equal(t, 1, tree.ChipCount())
	assert.Zero(t, d.Find(".mx_Pill a").Length())
}

func TestLinkHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		match string
		href  string
		ok    bool
	}{
		{"https://example.com/a?b=c", "https://example.com/a?b=c", true},
		{"ftp://files.example.org", "ftp://files.example.org", true},
		{"mailto:alice@example.org", "mailto:alice@example.org", true},
		{"www.example.org/x", "https://www.example.org/x", true},
		{"WWW.example.org", "https://WWW.example.org", true},
		{"example.com:8080/path", "", false},
		{"localhost:3000", "", false},
		{"example.net", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.match, func(t *testing.T) {
			t.Parallel()
			href, ok := linkHref(tt.match)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.href, href)
		})
	}
}

func TestHighlightTermsKeepChipsAndLinks(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := plainBody("ask @alice:example.org via https://example.com/alice")
	tree := renderTree(t, content, nil)
	opts := testOptions()
	opts.HighlightTerms = []string{"alice"}
	p.Enrich(tree, content, opts)

	require.Equal(t, 1, tree.ChipCount())
	assert.Equal(t, "@alice:example.org", tree.Chips()[0].Identifier)

	d := query(t, tree)
	a := d.Find("a")
	require.Equal(t, 1, a.Length())
	assert.Equal(t, "https://example.com/alice", a.AttrOr("href", ""))
	assert.Equal(t, "https://example.com/alice", a.Text())

	hl := d.Find("span." + render.ClassSearchHighlight)
	require.Equal(t, 2, hl.Length())
	assert.Equal(t, 1, d.Find(".mx_UserPill span."+render.ClassSearchHighlight).Length())
	assert.Equal(t, 1, a.Find("span."+render.ClassSearchHighlight).Length())
	assert.Equal(t, "ask @alice:example.org via https://example.com/alice", tree.TextContent(tree.Root()))

	before := tree.Mutations()
	p.Enrich(tree, content, opts)
	assert.Equal(t, before, tree.Mutations())
}

func TestCodeBlockToggleThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       string
		expand     bool
		wantToggle bool
		collapsed  bool
	}{
		{"tall collapsed by default", "a\nb\nc\n", false, true, true},
		{"tall expanded by default", "a\nb\nc\n", true, true, false},
		{"short", "a\nb\n", false, false, false},
		{"short expanded by default", "a\nb\n", true, false, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _ := newPipeline(t, nil)
			content := htmlBody("<pre><code>" + tt.code + "</code></pre>")
			tree := renderTree(t, content, nil)
			opts := testOptions()
			opts.Flags.ExpandCodeByDefault = tt.expand
			p.Enrich(tree, content, opts)

			blocks := tree.CodeBlocks()
			require.Len(t, blocks, 1)
			st, _ := tree.CodeBlock(blocks[0])
			assert.Equal(t, tt.wantToggle, st.Collapsible)
			assert.Equal(t, tt.collapsed, st.Collapsed)

			d := query(t, tree)
			container := d.Find("div." + ClassPreContainer)
			require.Equal(t, 1, container.Length())
			assert.Equal(t, 1, container.Find("."+ClassCopyButton).Length())
			toggles := container.Find("." + ClassCollapseButton + ", ." + ClassExpandButton).Length()
			assert.Equal(t, tt.wantToggle, toggles == 1)
			assert.Equal(t, tt.collapsed, d.Find("pre").HasClass(ClassCollapsedBlock))
		})
	}
}

func TestCodeBlockThresholdFallback(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody("<pre><code>one line</code></pre>")
	tree := renderTree(t, content, nil)
	p.Enrich(tree, content, Options{Layout: LineLayout{LineHeight: 10, Viewport: 1000}})

	blocks := tree.CodeBlocks()
	require.Len(t, blocks, 1)
	st, _ := tree.CodeBlock(blocks[0])
	assert.False(t, st.Collapsible)
	assert.False(t, st.Collapsed)
}

func TestLineNumbers(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody("<pre><code>one\ntwo\nthree\n</code></pre><pre>bare\nblock</pre>")
	tree := renderTree(t, content, nil)
	opts := testOptions()
	opts.Flags.ShowCodeLineNumbers = true
	p.Enrich(tree, content, opts)
	p.Enrich(tree, content, opts)

	d := query(t, tree)
	gutters := d.Find("span." + ClassLineNumbers)
	require.Equal(t, 2, gutters.Length())
	assert.Equal(t, 3, gutters.Eq(0).Children().Length())
	assert.Equal(t, "123", gutters.Eq(0).Text())
	assert.Equal(t, 2, gutters.Eq(1).Children().Length())
	assert.Equal(t, "one\ntwo\nthree\n", d.Find("code").Text())

	for _, id := range tree.CodeBlocks() {
		st, _ := tree.CodeBlock(id)
		assert.True(t, st.HasLineNumbers)
	}
}

func TestEnrichIsIdempotent(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody(`<p>hi @alice:example.org see https://example.com</p>` +
		`<a href="https://matrix.to/#/!room:example.org">room</a>` +
		`<pre><code class="language-go">package main
func main() {}
</code></pre>`)
	tree := renderTree(t, content, nil)
	opts := testOptions()
	opts.Flags.ShowCodeLineNumbers = true

	p.Enrich(tree, content, opts)
	html, chips, mutations := tree.HTML(), tree.ChipCount(), tree.Mutations()
	states := codeStates(tree)
	require.Equal(t, 1, p.Queue().Pending())

	p.Enrich(tree, content, opts)
	assert.Equal(t, html, tree.HTML())
	assert.Equal(t, chips, tree.ChipCount())
	assert.Equal(t, mutations, tree.Mutations())
	assert.Equal(t, states, codeStates(tree))
	assert.Equal(t, 1, p.Queue().Pending(), "no duplicate highlight job")

	require.Equal(t, 1, p.Queue().Drain())
	highlighted := tree.Mutations()
	p.Enrich(tree, content, opts)
	assert.Equal(t, highlighted, tree.Mutations())
	assert.Zero(t, p.Queue().Pending())
}

func codeStates(tree *body.Tree) []body.CodeBlockState {
	var out []body.CodeBlockState
	for _, id := range tree.CodeBlocks() {
		st, _ := tree.CodeBlock(id)
		out = append(out, st)
	}
	return out
}

func TestHighlightDeferred(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody(`<pre><code class="language-go">package main

func main() { println("hi") }
</code></pre>`)
	tree := renderTree(t, content, nil)
	p.Enrich(tree, content, testOptions())

	pre := tree.CodeBlocks()[0]
	st, _ := tree.CodeBlock(pre)
	assert.False(t, st.Highlighted)
	assert.Equal(t, "go", st.Language)
	text := tree.TextContent(st.Code)

	require.Equal(t, 1, p.Queue().Drain())
	st, _ = tree.CodeBlock(pre)
	assert.True(t, st.Highlighted)
	assert.Equal(t, text, tree.TextContent(st.Code))

	d := query(t, tree)
	assert.True(t, d.Find("code").HasClass(ClassHighlighted))
	assert.Positive(t, d.Find("code span.kd, code span.kn, code span.k").Length())
}

func TestHighlightLanguageSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		class      string
		autoDetect bool
		wantJob    bool
	}{
		{"explicit language", `class="language-python"`, false, true},
		{"unlabeled sentinel", `class="language-_plain"`, false, false},
		{"no language", ``, false, false},
		{"no language auto detect", ``, true, true},
		{"sentinel auto detect", `class="language-_plain"`, true, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _ := newPipeline(t, nil)
			content := htmlBody(`<pre><code ` + tt.class + `>print("hi")</code></pre>`)
			tree := renderTree(t, content, nil)
			opts := testOptions()
			opts.Flags.AutoDetectLanguage = tt.autoDetect
			p.Enrich(tree, content, opts)
			assert.Equal(t, tt.wantJob, p.Queue().Pending() == 1)
		})
	}
}

func TestHighlightFailureIsIsolated(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)

	content := htmlBody(`<pre><code class="language-nosuchlang">x</code></pre><pre><code class="language-go">var x = 1</code></pre>`)
	tree := renderTree(t, content, nil)
	p.Enrich(tree, content, testOptions())
	require.Equal(t, 2, p.Queue().Drain())

	states := codeStates(tree)
	require.Len(t, states, 2)
	assert.False(t, states[0].Highlighted)
	assert.True(t, states[1].Highlighted)
}

func TestDisposeBeforeHighlight(t *testing.T) {
	t.Parallel()

	t.Run("dispose cancels queued work", func(t *testing.T) {
		t.Parallel()
		p, _ := newPipeline(t, nil)
		content := htmlBody(`<pre><code class="language-go">var x = 1</code></pre>`)
		tree := renderTree(t, content, nil)
		p.Enrich(tree, content, testOptions())
		require.Equal(t, 1, p.Queue().Pending())

		tree.Dispose()
		before := tree.Mutations()
		assert.Zero(t, p.Queue().Pending())
		assert.Zero(t, p.Queue().Drain())
		assert.Equal(t, before, tree.Mutations())
	})

	t.Run("job checks disposed flag", func(t *testing.T) {
		t.Parallel()
		p, _ := newPipeline(t, nil)
		content := htmlBody(`<pre><code class="language-go">var x = 1</code></pre>`)
		tree := renderTree(t, content, nil)
		// Bypass the dispose hook so the job is still queued.
		p.processCodeBlocks(tree, testOptions())
		tree.Dispose()
		before := tree.Mutations()

		assert.Equal(t, 1, p.Queue().Drain())
		assert.Equal(t, before, tree.Mutations())
		st, _ := tree.CodeBlock(tree.CodeBlocks()[0])
		assert.False(t, st.Highlighted)
	})
}

func TestDisposePublishesNotice(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)
	events := p.Subscribe(testContext(t))

	content := htmlBody("<pre><code>x := 1</code></pre>")
	tree, err := render.BodyToTree(content, render.Options{}, nil)
	require.NoError(t, err)
	p.Enrich(tree, content, testOptions())
	p.Enrich(tree, content, testOptions())
	tree.Dispose()

	ev := <-events
	assert.Equal(t, EventTreeDisposed, ev.Type)
	assert.Equal(t, tree.ID(), ev.Payload.TreeID)
	assert.Zero(t, p.Queue().Pending())
	assert.Empty(t, events, "one notice per tree")
}

func TestToggle(t *testing.T) {
	t.Parallel()
	p, _ := newPipeline(t, nil)
	events := p.Subscribe(testContext(t))

	content := htmlBody("<pre><code>a\nb\nc\nd\n</code></pre><pre><code>short</code></pre>")
	tree := renderTree(t, content, nil)
	p.Enrich(tree, content, testOptions())
	blocks := tree.CodeBlocks()
	require.Len(t, blocks, 2)

	collapsed, ok := p.Toggle(tree, blocks[0])
	require.True(t, ok)
	assert.False(t, collapsed)

	ev := <-events
	assert.Equal(t, EventContentHeightChanged, ev.Type)
	assert.Equal(t, tree.ID(), ev.Payload.TreeID)
	assert.Equal(t, blocks[0], ev.Payload.Node)
	assert.False(t, ev.Payload.Collapsed)

	d := query(t, tree)
	assert.False(t, d.Find("pre").First().HasClass(ClassCollapsedBlock))
	assert.Equal(t, 1, d.Find("."+ClassCollapseButton).Length())

	collapsed, ok = p.Toggle(tree, blocks[0])
	require.True(t, ok)
	assert.True(t, collapsed)
	assert.True(t, (<-events).Payload.Collapsed)

	_, ok = p.Toggle(tree, blocks[1])
	assert.False(t, ok, "short block has no toggle")
}

func TestCopy(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		clip := &fakeClipboard{}
		p, st := newPipeline(t, clip)
		events := p.Subscribe(testContext(t))
		notices := st.Subscribe(testContext(t))

		content := htmlBody("<pre><code>echo hi\n</code></pre>")
		tree := renderTree(t, content, nil)
		opts := testOptions()
		opts.Flags.ShowCodeLineNumbers = true
		p.Enrich(tree, content, opts)

		assert.True(t, p.Copy(tree, tree.CodeBlocks()[0]))
		assert.Equal(t, []string{"echo hi\n"}, clip.text)

		ev := <-events
		assert.Equal(t, EventCopyRequested, ev.Type)
		assert.True(t, ev.Payload.Success)
		msg := <-notices
		assert.Equal(t, status.LevelInfo, msg.Payload.Level)
	})

	t.Run("failure is reported not returned", func(t *testing.T) {
		t.Parallel()
		p, st := newPipeline(t, &fakeClipboard{err: errors.New("no clipboard")})
		events := p.Subscribe(testContext(t))
		notices := st.Subscribe(testContext(t))

		content := htmlBody("<pre><code>echo hi</code></pre>")
		tree := renderTree(t, content, nil)
		p.Enrich(tree, content, testOptions())

		assert.False(t, p.Copy(tree, tree.CodeBlocks()[0]))
		assert.False(t, (<-events).Payload.Success)
		assert.Equal(t, status.LevelError, (<-notices).Payload.Level)
	})
}

func TestLexerFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  string
		want string
	}{
		{"go", "Go"},
		{"PY", "Python"},
		{"sh", "Bash"},
		{".ts", "TypeScript"},
		{"main.rs", "Rust"},
		{"Dockerfile", "Docker"},
		{"go.mod", "Go"},
		{"nosuchlang", ""},
		{"", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.tag, func(t *testing.T) {
			t.Parallel()
			l := lexerFor(tt.tag)
			if tt.want == "" {
				assert.Nil(t, l)
				return
			}
			require.NotNil(t, l)
			assert.Equal(t, tt.want, l.Config().Name)
		})
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
