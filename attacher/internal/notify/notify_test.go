package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCenter_PublishesAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	center := NewCenter(zap.New(core))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	center.now = func() time.Time { return fixed }

	var got []Notification
	unsubscribe := center.Subscribe(func(n Notification) { got = append(got, n) })
	defer unsubscribe()

	center.Error("Failed to list clusters", errors.New("gateway down"))
	center.Notice("Cluster detached", "the cluster was removed")

	require.Len(t, got, 2)
	assert.Equal(t, Notification{Level: LevelError, Title: "Failed to list clusters", Message: "gateway down", Time: fixed}, got[0])
	assert.Equal(t, Notification{Level: LevelNotice, Title: "Cluster detached", Message: "the cluster was removed", Time: fixed}, got[1])

	assert.Equal(t, 1, logs.FilterMessage("Failed to list clusters").FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("Cluster detached").FilterLevelExact(zapcore.InfoLevel).Len())
}

func TestCenter_NilError(t *testing.T) {
	center := NewCenter(zap.NewNop())

	var got Notification
	center.Subscribe(func(n Notification) { got = n })
	center.Error("Something failed", nil)

	assert.Equal(t, LevelError, got.Level)
	assert.Empty(t, got.Message)
}

func TestCenter_Unsubscribe(t *testing.T) {
	center := NewCenter(zap.NewNop())

	count := 0
	unsubscribe := center.Subscribe(func(Notification) { count++ })
	center.Notice("one", "")
	unsubscribe()
	center.Notice("two", "")

	assert.Equal(t, 1, count)
}
