package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"maunium.net/go/mautrix/event"
)

// checkStdinPipe reads stdin when data is piped in.
func checkStdinPipe() (string, bool) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", false
		}
		if len(data) > 0 {
			return string(data), true
		}
	}
	return "", false
}

// parseContent interprets input by its name: .json is message event
// content, .html/.htm a formatted body, anything else a plain body.
func parseContent(name, data string) (*event.MessageEventContent, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		var content event.MessageEventContent
		if err := json.Unmarshal([]byte(data), &content); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if content.MsgType == "" {
			content.MsgType = event.MsgText
		}
		return &content, nil
	case ".html", ".htm":
		return &event.MessageEventContent{
			MsgType:       event.MsgText,
			Body:          data,
			Format:        event.FormatHTML,
			FormattedBody: data,
		}, nil
	default:
		return &event.MessageEventContent{MsgType: event.MsgText, Body: data}, nil
	}
}
