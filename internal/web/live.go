package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/starter/pkg/session"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 4096
	typeNavigate = "navigate"
	typeError    = "error"
	typeResult   = "result"
)

func deadline() time.Time { return time.Now().Add(writeWait) }

// liveRequest is a frame sent by the browser.
type liveRequest struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	To   string `json:"to"`
}

// liveConn serializes writes to one connection.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(deadline())
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// handleLive runs the live navigation channel. Every navigate frame starts
// a navigation at once; a later frame supersedes an earlier one still in
// flight, whose result is still reported with its own seq.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.From(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.track(conn)
	defer func() {
		s.untrack(conn)
		conn.Close()
	}()
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lc := &liveConn{conn: conn}
	logger := s.logger.With("session_id", sess.ID())
	var (
		wg      sync.WaitGroup
		lastSeq uint64
	)
	defer wg.Wait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live connection closed", "error", err)
			}
			cancel()
			return
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Type != typeNavigate {
			lc.send(Frame{Type: typeError, Seq: req.Seq})
			continue
		}
		if req.Seq != 0 && req.Seq <= lastSeq {
			// Replayed or reordered frame.
			continue
		}
		lastSeq = req.Seq

		wg.Add(1)
		go func(req liveRequest) {
			defer wg.Done()
			frame := s.navigate(ctx, sess, req.To)
			frame.Seq = req.Seq
			if err := lc.send(frame); err != nil {
				logger.Debug("live write failed", "seq", req.Seq, "error", err)
			}
		}(req)
	}
}
