package handler

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	authmw "noteflow/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Live upgrades to a websocket and pushes the caller's view after every
// change. Only the newest view is sent when the client falls behind.
func (h *Handler) Live(c echo.Context) error {
	s, release, err := h.sessions.Hold(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	defer release()

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer ws.Close()

	views, stop := s.Core.Watch()
	defer stop()

	// The read loop only services control frames and notices disconnects.
	gone := make(chan struct{})
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	userID := authmw.UserID(c)
	h.log.Debug("live stream opened", zap.String("user_id", userID))
	defer h.log.Debug("live stream closed", zap.String("user_id", userID))

	for {
		select {
		case <-gone:
			return nil
		case v, ok := <-views:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return nil
			}
			if err := ws.WriteJSON(v); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
