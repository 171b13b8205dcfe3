package status

import (
	"time"

	"github.com/sst/chatbody/internal/pubsub"
)

// Level represents the severity level of a status message
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
)

// EventStatusPosted carries every message published by a Service.
const EventStatusPosted pubsub.EventType = "status_posted"

// DefaultTTL is how long a transient message stays visible.
const DefaultTTL = 2 * time.Second

// StatusMessage is a transient, user-visible notice such as "Copied!".
type StatusMessage struct {
	Level     Level         `json:"level"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the message should no longer be shown at now.
func (m StatusMessage) Expired(now time.Time) bool {
	return m.TTL > 0 && now.Sub(m.Timestamp) >= m.TTL
}

type Service interface {
	pubsub.Subscriber[StatusMessage]
	Info(message string)
	Warn(message string)
	Error(message string)
	Debug(message string)
	Shutdown()
}

type service struct {
	*pubsub.Broker[StatusMessage]
	now func() time.Time
}

func (s *service) Info(message string)  { s.publish(LevelInfo, message) }
func (s *service) Warn(message string)  { s.publish(LevelWarn, message) }
func (s *service) Error(message string) { s.publish(LevelError, message) }
func (s *service) Debug(message string) { s.publish(LevelDebug, message) }

func (s *service) publish(level Level, message string) {
	s.Publish(EventStatusPosted, StatusMessage{
		Level:     level,
		Message:   message,
		Timestamp: s.now(),
		TTL:       DefaultTTL,
	})
}

func NewService() Service {
	return &service{
		Broker: pubsub.NewBroker[StatusMessage](),
		now:    time.Now,
	}
}
