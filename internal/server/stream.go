package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/illomx/market-dashboard/internal/dashboard"
	"github.com/illomx/market-dashboard/internal/watch"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512
)

// streamMessage is one frame on the dashboard stream.
type streamMessage struct {
	Type      string               `json:"type"`
	Dashboard *dashboard.Dashboard `json:"dashboard"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	account, ok := s.parseAccount(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: only pongs and close frames are expected. Any read error
	// means the client is gone.
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	handler := watch.HandlerFunc(func(d *dashboard.Dashboard) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(streamMessage{Type: "dashboard", Dashboard: d})
	})

	refresher := watch.New(watch.Config{
		Interval: s.cfg.WatchInterval,
		Timeout:  s.cfg.LoadTimeout,
	}, s.loader, account, handler, s.logger)

	if err := refresher.Start(ctx); err != nil {
		s.logger.Error("start refresher", "err", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-refresher.Done():
			break loop
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				break loop
			}
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), writeWait)
	defer stopCancel()
	refresher.Stop(stopCtx)

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
