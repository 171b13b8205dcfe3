// Package enrich augments rendered message bodies: reference chips, links
// and code block controls with deferred syntax highlighting.
package enrich

import (
	"log/slog"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/pubsub"
	"github.com/sst/chatbody/internal/render"
	"github.com/sst/chatbody/internal/status"
	"maunium.net/go/mautrix/event"
)

// Options carries everything a pass may consult. Chip hosts are bound to
// the tree when it is rendered.
type Options struct {
	Flags  config.Flags
	Layout Layout

	// HighlightTerms are search terms marked after chips and links exist.
	HighlightTerms []string
}

// DefaultOptions uses the default flags and a line layout from the config
// defaults.
func DefaultOptions() Options {
	return Options{
		Flags:  config.DefaultFlags(),
		Layout: LineLayout{LineHeight: config.DefaultLineHeight, Viewport: config.DefaultViewportHeight},
	}
}

// Clipboard receives code copied from a block.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Pipeline runs the enrichment passes and owns the controls they install.
type Pipeline struct {
	*pubsub.Broker[Notice]

	queue     *WorkQueue
	status    status.Service
	clipboard Clipboard

	mu      sync.Mutex
	watched map[string]struct{}
}

type PipelineOption func(*Pipeline)

func WithClipboard(c Clipboard) PipelineOption {
	return func(p *Pipeline) { p.clipboard = c }
}

func WithStatus(s status.Service) PipelineOption {
	return func(p *Pipeline) { p.status = s }
}

func NewPipeline(queue *WorkQueue, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		Broker:    pubsub.NewBroker[Notice](),
		queue:     queue,
		clipboard: systemClipboard{},
		watched:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.status == nil {
		p.status = status.GetService()
	}
	return p
}

func (p *Pipeline) Queue() *WorkQueue { return p.queue }

// Enrich runs the chip, link, search term and code block passes over tree
// in that order. Running it again on an unchanged tree changes nothing.
func (p *Pipeline) Enrich(tree *body.Tree, content *event.MessageEventContent, opts Options) *body.Tree {
	if tree == nil || tree.Disposed() {
		return tree
	}
	if opts.Layout == nil {
		opts.Layout = DefaultOptions().Layout
	}
	p.watch(tree)

	before := tree.Mutations()
	chips := substituteChips(tree, opts.Flags)
	links := linkify(tree)
	highlights := render.HighlightTerms(tree, opts.HighlightTerms)
	blocks := p.processCodeBlocks(tree, opts)
	if tree.Mutations() != before {
		var msgtype event.MessageType
		if content != nil {
			msgtype = content.MsgType
		}
		slog.Debug("enriched body",
			"tree", tree.ID(),
			"msgtype", msgtype,
			"chips", chips,
			"links", links,
			"highlights", highlights,
			"code_blocks", blocks,
		)
	}
	return tree
}

// watch cancels the tree's deferred work when it is disposed and tells
// subscribers the tree is gone.
func (p *Pipeline) watch(tree *body.Tree) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := tree.ID()
	if _, ok := p.watched[id]; ok {
		return
	}
	p.watched[id] = struct{}{}
	tree.OnDispose(func() {
		if n := p.queue.CancelTree(id); n > 0 {
			slog.Debug("cancelled deferred work", "tree", id, "jobs", n)
		}
		p.mu.Lock()
		delete(p.watched, id)
		p.mu.Unlock()
		p.Publish(EventTreeDisposed, Notice{TreeID: id})
	})
}
