package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"wakewatch/internal/logging"
)

const (
	statusPushInterval = time.Second
	statusWriteTimeout = 5 * time.Second
)

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStatusConnection(conn)
}

// serveStatusConnection pushes the status every second. A "refresh" text message from the
// client triggers a manual refresh.
func (s *Server) serveStatusConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeStatusPayload(conn, s.buildStatus()); err != nil {
		return
	}

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	refreshCh := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.TrimSpace(string(msg)) != "refresh" {
				continue
			}
			select {
			case refreshCh <- struct{}{}:
			default:
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeStatusPayload(conn, s.buildStatus()); err != nil {
				return
			}
		case <-refreshCh:
			go func() {
				res := s.monitor.Refresh()
				if res.Dropped {
					logging.Info("websocket refresh dropped, check already in flight", nil)
				}
			}()
		case <-done:
			return
		}
	}
}

func writeStatusPayload(conn *websocket.Conn, payload statusPayload) error {
	_ = conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
	return conn.WriteJSON(payload)
}
