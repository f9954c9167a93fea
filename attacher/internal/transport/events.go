package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
)

// Event message types
const (
	EventClusters     = "clusters"
	EventAttachment   = "attachment"
	EventNotification = "notification"
)

const (
	eventBuffer  = 32
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Event is one message on the events stream
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventsHandler streams cluster, attachment and notification updates. The
// current cluster list and attachment are sent first.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade events connection", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := s.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Debug("Events client connected")

	out := make(chan Event, eventBuffer)
	push := func(e Event) {
		select {
		case out <- e:
		default:
			logger.Warn("Events client is too slow, dropping message", zap.String("type", e.Type))
		}
	}

	push(Event{Type: EventClusters, Data: s.clusters.Clusters().SortedByStatus()})
	push(Event{Type: EventAttachment, Data: s.attachments.Attachment()})

	unsubscribes := []func(){
		s.clusters.Subscribe(func(c clusterstore.Change) {
			push(Event{Type: EventClusters, Data: c.New.SortedByStatus()})
		}),
		s.attachments.Subscribe(func(a reconciler.Attachment) {
			push(Event{Type: EventAttachment, Data: a})
		}),
		s.notifications.Subscribe(func(n notify.Notification) {
			push(Event{Type: EventNotification, Data: n})
		}),
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	// The client only sends control frames; reading detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			logger.Debug("Events client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-s.closing:
			logger.Debug("Closing events stream for shutdown")
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case e := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("Failed to write event", zap.Error(err))
				return
			}
		}
	}
}
