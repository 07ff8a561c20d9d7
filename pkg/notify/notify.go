// Package notify is the single channel for transient user-facing messages.
//
// Components never print. They post a [Notification] to the session's
// [Center]; the center logs it and hands it to whoever displays toasts
// (the terminal UI, or the CLI's print helpers).
package notify

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/event"
)

// Level is the severity of a notification.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one transient message.
type Notification struct {
	ID      uuid.UUID
	Level   Level
	Message string
	Code    errors.Code
	At      time.Time
}

// Center fans notifications out to subscribers.
type Center struct {
	bus    event.Bus[Notification]
	logger *log.Logger
	now    func() time.Time
}

// NewCenter returns a center logging through logger (nil uses the default
// logger). now supplies timestamps; nil uses time.Now.
func NewCenter(logger *log.Logger, now func() time.Time) *Center {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Center{logger: logger, now: now}
}

// Subscribe registers fn for every notification.
func (c *Center) Subscribe(fn func(Notification)) (cancel func()) {
	return c.bus.Subscribe(fn)
}

// Bus exposes the notification bus for subscriber enumeration.
func (c *Center) Bus() *event.Bus[Notification] { return &c.bus }

// Notify posts a message at the given level.
func (c *Center) Notify(level Level, format string, args ...any) Notification {
	return c.post(Notification{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Infof posts an informational message.
func (c *Center) Infof(format string, args ...any) Notification {
	return c.Notify(Info, format, args...)
}

// Successf posts a success message.
func (c *Center) Successf(format string, args ...any) Notification {
	return c.Notify(Success, format, args...)
}

// Warnf posts a warning.
func (c *Center) Warnf(format string, args ...any) Notification {
	return c.Notify(Warning, format, args...)
}

// Err posts err at the given level, using its user message and code.
func (c *Center) Err(level Level, err error) Notification {
	return c.post(Notification{
		Level:   level,
		Message: errors.UserMessage(err),
		Code:    errors.GetCode(err),
	})
}

func (c *Center) post(n Notification) Notification {
	n.ID = uuid.New()
	n.At = c.now()

	kv := []any{"level", n.Level}
	if n.Code != "" {
		kv = append(kv, "code", n.Code)
	}
	switch n.Level {
	case Error:
		c.logger.Error(n.Message, kv...)
	case Warning:
		c.logger.Warn(n.Message, kv...)
	default:
		c.logger.Info(n.Message, kv...)
	}

	c.bus.Publish(n)
	return n
}
