package notify

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/events"
)

// Level distinguishes errors from informational notices
type Level string

const (
	LevelError  Level = "error"
	LevelNotice Level = "notice"
)

// Notification is a user-facing message
type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier shows messages to the user
type Notifier interface {
	Error(title string, err error)
	Notice(title, message string)
}

// Center logs notifications and forwards them to subscribers
type Center struct {
	logger      *zap.Logger
	broadcaster *events.Broadcaster[Notification]
	now         func() time.Time
}

// NewCenter creates a notification center
func NewCenter(logger *zap.Logger) *Center {
	return &Center{
		logger:      logger.Named("notify"),
		broadcaster: events.NewBroadcaster[Notification](),
		now:         time.Now,
	}
}

// Error reports a failure to the user
func (c *Center) Error(title string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	c.logger.Error(title, zap.Error(err))
	c.publish(LevelError, title, message)
}

// Notice reports an informational message to the user
func (c *Center) Notice(title, message string) {
	c.logger.Info(title, zap.String("message", message))
	c.publish(LevelNotice, title, message)
}

func (c *Center) publish(level Level, title, message string) {
	c.broadcaster.Publish(Notification{
		Level:   level,
		Title:   title,
		Message: message,
		Time:    c.now(),
	})
}

// Subscribe registers a listener for every notification
func (c *Center) Subscribe(listener func(Notification)) func() {
	return c.broadcaster.Subscribe(listener)
}

// Nop discards every notification
type Nop struct{}

func (Nop) Error(string, error)   {}
func (Nop) Notice(string, string) {}

// Module provides the notification center to the fx container
var Module = fx.Options(
	fx.Provide(NewCenter),
	fx.Provide(func(c *Center) Notifier { return c }),
)
