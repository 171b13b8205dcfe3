package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/google/uuid"
	"github.com/sst/chatbody/internal/pubsub"
)

const (
	EventLogCreated pubsub.EventType = "log_created"

	defaultStoreSize = 500
)

// Store keeps the most recent log lines in memory and publishes each one.
type Store struct {
	*pubsub.Broker[Log]

	mu    sync.RWMutex
	logs  []Log
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = defaultStoreSize
	}
	return &Store{
		Broker: pubsub.NewBroker[Log](),
		limit:  limit,
	}
}

func (s *Store) Add(l Log) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Level == "" {
		l.Level = "info"
	}
	s.mu.Lock()
	s.logs = append(s.logs, l)
	if over := len(s.logs) - s.limit; over > 0 {
		s.logs = append(s.logs[:0:0], s.logs[over:]...)
	}
	s.mu.Unlock()
	s.Publish(EventLogCreated, l)
}

// Recent returns up to limit of the newest entries, oldest first. A
// non-positive limit returns everything retained.
func (s *Store) Recent(limit int) []Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.logs) > limit {
		start = len(s.logs) - limit
	}
	return append([]Log(nil), s.logs[start:]...)
}

type writer struct {
	store *Store
}

// NewWriter returns an io.Writer that decodes logfmt records, as produced by
// slog.TextHandler, into the store.
func NewWriter(store *Store) *writer {
	return &writer{store: store}
}

func (w *writer) Write(p []byte) (int, error) {
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		msg := Log{}
		for d.ScanKeyval() {
			key, value := string(d.Key()), string(d.Value())
			switch key {
			case "time":
				parsed, err := time.Parse(time.RFC3339Nano, value)
				if err != nil {
					return 0, fmt.Errorf("parsing time: %w", err)
				}
				msg.Timestamp = parsed
			case "level":
				msg.Level = strings.ToLower(value)
			case "msg":
				msg.Message = value
			default:
				if msg.Attributes == nil {
					msg.Attributes = make(map[string]string)
				}
				msg.Attributes[key] = value
			}
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		w.store.Add(msg)
	}
	if d.Err() != nil {
		return 0, d.Err()
	}
	return len(p), nil
}
