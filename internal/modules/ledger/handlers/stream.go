package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/askpay/forexsignals/internal/events"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 5 * time.Second

// HandleStream handles GET /api/ledger/stream, pushing ledger events to a
// websocket client as JSON until either side closes.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		http.Error(w, "Event stream not available", http.StatusServiceUnavailable)
		return
	}

	// Long-lived stream: lift the server read/write deadlines where the writer allows it
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin is enforced by the CORS middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Buffer to prevent blocking the publisher
	eventChan := make(chan events.Event, 100)
	unsubscribe := h.bus.SubscribeAll(func(event events.Event) {
		if event.Module != "ledger" {
			return
		}
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx when the peer goes away.
	// The request timeout middleware must not end the stream.
	ctx := conn.CloseRead(context.WithoutCancel(r.Context()))

	h.log.Info().Msg("Client connected to ledger stream")

	if err := h.writeEvent(ctx, conn, map[string]interface{}{
		"type":    "connected",
		"balance": h.ledger.Balance(),
	}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from ledger stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write ledger event")
				return
			}
		}
	}
}

func (h *Handler) writeEvent(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
