package enrich

import (
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/pubsub"
)

const (
	EventContentHeightChanged pubsub.EventType = "content_height_changed"
	EventCopyRequested        pubsub.EventType = "copy_requested"
	EventTreeDisposed         pubsub.EventType = "tree_disposed"
)

// Notice is published to the host when a code block control changes what
// the body looks like or asks for feedback, and when an enriched tree is
// disposed.
type Notice struct {
	TreeID    string      `json:"treeId"`
	Node      body.NodeID `json:"node"`
	Collapsed bool        `json:"collapsed,omitempty"`
	Success   bool        `json:"success,omitempty"`
}
