package enrich

import (
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/render"
	"maunium.net/go/mautrix/event"
)

// Display returns the enriched tree for content, rendering and caching it
// when this content version has not been seen. Deferred highlighting is
// left on the queue for the caller to drain.
func (p *Pipeline) Display(cache *Cache, content *event.MessageEventContent, ropts render.Options, opts Options, host body.ChipHost) (*body.Tree, bool, error) {
	ropts.DisableBigEmoji = ropts.DisableBigEmoji || !opts.Flags.EnableBigEmoji
	opts.HighlightTerms = ropts.HighlightTerms
	key := Key(content, ropts)
	if tree, ok := cache.Get(key); ok && !tree.Disposed() {
		return p.Enrich(tree, content, opts), true, nil
	}

	tree, err := render.BodyToTree(content, ropts, host)
	if err != nil {
		return nil, false, err
	}
	p.Enrich(tree, content, opts)
	cache.Set(key, tree)
	return tree, false, nil
}
