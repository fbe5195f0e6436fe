package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/pipeline"
)

const writeWait = 10 * time.Second

// streamMessage is one frame of /api/analyze/stream
type streamMessage struct {
	Type  string          `json:"type"` // snapshot, error
	State *model.RunState `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handleStream reads one AnalyzeRequest from the socket and streams every
// snapshot of the run. Closing the socket cancels the run.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxRequestBytes)

	var req AnalyzeRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeFrame(conn, streamMessage{Type: "error", Error: "invalid request: " + err.Error()})
		return
	}
	in, err := s.toInput(req)
	if err != nil {
		s.writeFrame(conn, streamMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.AnalyzeTimeout)
	defer cancel()

	// The client sends nothing after the request; any frame or read
	// error means it is gone
	go func() {
		_, _, _ = conn.NextReader()
		cancel()
	}()

	pub := pipeline.NewPublisher(0)
	snapshots, unsubscribe := pub.Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := s.analyzer.Analyze(ctx, in, pub)
		pub.Close()
		done <- err
	}()

	for state := range snapshots {
		if err := s.writeFrame(conn, streamMessage{Type: "snapshot", State: &state}); err != nil {
			cancel()
			break
		}
	}

	if err := <-done; err != nil {
		s.logger.Info("streamed analysis ended with error", "error", err)
		_ = s.writeFrame(conn, streamMessage{Type: "error", Error: err.Error()})
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "analysis finished"),
		time.Now().Add(writeWait))
}

func (s *Server) writeFrame(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
