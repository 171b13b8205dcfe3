// Package emote reads custom emote packs from account data.
package emote

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/marcozac/go-jsonc"
	"github.com/tidwall/gjson"
)

// AccountDataType is the account data event carrying a user's emotes.
const AccountDataType = "im.ponies.user_emotes"

// Emote is one custom emote in pack order.
type Emote struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	Ordinal   int    `json:"ordinal"`
}

// Parse extracts emotes from an account data event. It accepts the event
// itself, an {"event": ...} wrapper, or a bare content object. Entries keep
// document order. Malformed input yields an empty set.
func Parse(data []byte) []Emote {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return nil
	}

	root := gjson.ParseBytes(data)
	if ev := root.Get("event"); ev.IsObject() {
		root = ev
	}
	content := root.Get("content")
	if !content.IsObject() {
		content = root
	}

	pack := content.Get("emoticons")
	if !pack.Exists() {
		pack = content.Get("images")
	}
	if !pack.IsObject() {
		return nil
	}

	var out []Emote
	pack.ForEach(func(key, value gjson.Result) bool {
		url := value.Get("url")
		if url.Type != gjson.String || url.String() == "" {
			slog.Debug("skipping emote without url", "name", key.String())
			return true
		}
		out = append(out, Emote{
			Shortcode: Shortcode(key.String()),
			URL:       url.String(),
			Ordinal:   len(out),
		})
		return true
	})
	return out
}

// Shortcode normalizes a pack key into its ":name:" form.
func Shortcode(name string) string {
	if strings.HasPrefix(name, ":") {
		return name
	}
	return ":" + name + ":"
}

// LoadFile reads emotes from a JSON or JSONC file. A missing file is an
// empty pack; any other problem is logged and also yields an empty pack.
func LoadFile(path string) []Emote {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read emote file", "path", path, "error", err)
		}
		return nil
	}

	var raw json.RawMessage
	if err := jsonc.Unmarshal(data, &raw); err != nil {
		slog.Warn("failed to parse emote file", "path", path, "error", err)
		return nil
	}
	return Parse(raw)
}
