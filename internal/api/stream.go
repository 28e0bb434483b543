package api

import (
	"context"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

const (
	writeWait      = 2 * time.Second
	commandTimeout = 3 * time.Second
)

// streamFrame is pushed to websocket clients at the stream interval.
// Pixels are hex encoded RGB triplets.
type streamFrame struct {
	Type   string            `json:"type"`
	Status controller.Status `json:"status"`
	Pixels string            `json:"pixels,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.log.Debug("websocket client connected", "remote", r.RemoteAddr)

	c := &wsConn{conn: conn}
	done := make(chan struct{})
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.readCommands(c)
	}()
	go func() {
		defer s.wg.Done()
		defer conn.Close()
		s.pushFrames(c, done)
	}()
}

// readCommands answers control messages until the client goes away.
func (s *Server) readCommands(c *wsConn) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, cmd, err := controller.DecodeMessage(data)
		var res controller.Result
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			res, err = s.ctrl.Submit(ctx, cmd)
			cancel()
		}
		if err := c.writeJSON(controller.Respond(msg, res, err)); err != nil {
			return
		}
	}
}

func (s *Server) pushFrames(c *wsConn, done <-chan struct{}) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			c.mu.Lock()
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			c.mu.Unlock()
			return
		case <-done:
			return
		case <-t.C:
			f := streamFrame{Type: "frame", Status: s.ctrl.Status()}
			if s.pixels != nil {
				f.Pixels = encodePixels(s.pixels.Snapshot())
			}
			if err := c.writeJSON(f); err != nil {
				return
			}
		}
	}
}

func encodePixels(px []sink.Color) string {
	raw := make([]byte, 0, 3*len(px))
	for _, p := range px {
		raw = append(raw, p.R, p.G, p.B)
	}
	return hex.EncodeToString(raw)
}
