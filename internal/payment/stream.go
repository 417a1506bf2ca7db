package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// Stream pushes session snapshots over a websocket until the session closes or the client
// goes away. Each frame is the latest snapshot; a version at or below the last sent one is
// never written, so frames arrive in order even when events do not.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.From(r.Context()).Warn("websocket upgrade failed", "session_id", sess.ID(), "error", err)
		return
	}
	defer conn.Close()

	notify := make(chan struct{}, 1)
	unsubscribe := h.Bus.Subscribe(events.EventTypePaymentStateChanged, func(_ context.Context, ev events.Event) error {
		changed, ok := ev.(*events.PaymentStateChangedEvent)
		if !ok || changed.SessionID != sess.ID() {
			return nil
		}
		select {
		case notify <- struct{}{}:
		default:
		}
		return nil
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	var (
		sent  uint64
		first = true
	)
	push := func() (bool, error) {
		snap := sess.Snapshot()
		if !first && snap.Version <= sent {
			return snap.Closed, nil
		}
		payload, err := json.Marshal(NewSessionResponse(snap))
		if err != nil {
			return false, err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return false, err
		}
		sent, first = snap.Version, false
		return snap.Closed, nil
	}

	if done, err := push(); err != nil || done {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			done, err := push()
			if err != nil {
				logger.From(r.Context()).Debug("payment stream write failed", "session_id", sess.ID(), "error", err)
				return
			}
			if done {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(streamWriteWait))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
