package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

func (s *Server) handleRecentNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.notifier.Recent(limit))
}

// handleNotificationStream pushes every published notification to the
// client as a JSON text message until either side closes.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(sub)

	s.logger.Debug("notification stream opened", "subscriber", sub.ID, "remote", r.RemoteAddr)

	pongWait := 2 * s.cfg.PingInterval
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reads only drive control frames and detect close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	go s.pingLoop(ctx, conn, &writeMu)

	for {
		n, ok := sub.Next(ctx)
		if !ok {
			break
		}
		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(n)
		writeMu.Unlock()
		if err != nil {
			s.logger.Debug("notification write failed", "subscriber", sub.ID, "err", err)
			return
		}
	}

	writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	writeMu.Unlock()
	s.logger.Debug("notification stream closed", "subscriber", sub.ID)
}

func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				s.logger.Debug("failed to send ping", "err", err)
				return
			}
		}
	}
}
