package server

import (
	"net/http"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
)

// ProgressHandler streams solver iteration events to WebSocket clients.
// Each connected client receives every event published while it is
// subscribed; slow clients may miss events rather than stall the solvers.
type ProgressHandler struct {
	broadcaster *selection.Broadcaster
	log         zerolog.Logger
}

// NewProgressHandler creates the progress streaming handler.
func NewProgressHandler(broadcaster *selection.Broadcaster, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		broadcaster: broadcaster,
		log:         log.With().Str("handler", "progress").Logger(),
	}
}

// ServeHTTP handles GET /api/events/progress
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The API is served behind CORS with open origins; the WebSocket
		// endpoint follows the same policy.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := h.broadcaster.Subscribe()
	defer cancel()

	h.log.Debug().Msg("Progress subscriber connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Progress subscriber disconnected")
				return
			}
		}
	}
}
