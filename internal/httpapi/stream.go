package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// streamSSE pushes one `data:` line per newly published event to a client
// that keeps the connection open. Reconnect is the client's responsibility.
func streamSSE(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "InternalError", "streaming unsupported")
			return
		}
		ch, cancel := svc.Subscribe()
		defer cancel()
		streamClients.Inc()
		defer streamClients.Dec()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fl.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-serverBaseCtx.Done():
				return
			case ev := <-ch:
				data, err := json.Marshal(ev)
				if err != nil {
					logError("marshal stream event " + ev.ID + ": " + err.Error())
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				fl.Flush()
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	// The UI is served from another origin in development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamWS serves the same feed over a WebSocket.
func streamWS(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			return
		}
		defer conn.Close()
		ch, cancel := svc.Subscribe()
		defer cancel()
		streamClients.Inc()
		defer streamClients.Dec()

		// Drain client frames so pings are answered and closes noticed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-serverBaseCtx.Done():
				return
			case ev := <-ch:
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	}
}
