package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ByLCY/quire/container"
)

// Stream message types sent as text frames. Output chunks travel as binary frames.
const (
	StreamTypeDone  = "done"
	StreamTypeError = "error"
)

// StreamMessage is the JSON text frame that ends a stream.
type StreamMessage struct {
	Type  string `json:"type"`
	Bytes int64  `json:"bytes,omitempty"`
	Pages int    `json:"pages,omitempty"`
	Error string `json:"error,omitempty"`
}

// renderStream upgrades to a websocket, reads one RenderRequest text frame and
// answers with one binary frame per output chunk followed by a StreamMessage.
func (s *Server) renderStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var req RenderRequest
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendStream(conn, StreamMessage{Type: StreamTypeError, Error: "invalid request: " + err.Error()})
		return
	}
	c, err := s.build(req)
	if err != nil {
		s.sendStream(conn, StreamMessage{Type: StreamTypeError, Error: err.Error()})
		return
	}

	ctx := r.Context()
	h, f := c.Render(ctx, req.layout())
	for chunk, err := range h.Chunks(ctx) {
		if err != nil {
			s.sendStream(conn, StreamMessage{Type: StreamTypeError, Error: err.Error()})
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.logger.Debug("stream write failed", "err", err)
			return
		}
	}
	res, err := f.Wait(ctx)
	if err != nil {
		s.sendStream(conn, StreamMessage{Type: StreamTypeError, Error: err.Error()})
		return
	}
	if err := c.Dispatch(res, container.Payload{}); err != nil {
		s.sendStream(conn, StreamMessage{Type: StreamTypeError, Error: err.Error()})
		return
	}
	s.sendStream(conn, StreamMessage{Type: StreamTypeDone, Bytes: h.Written(), Pages: res.PageCount()})
}

func (s *Server) sendStream(conn *websocket.Conn, msg StreamMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("stream write failed", "err", err)
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
