package ws

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/types"
	"github.com/stratosphere-bi/stratosphere/internal/utils"
)

var (
	userClients   = make(map[string]map[*websocket.Conn]bool)
	userClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastNotification tells every open connection for a user that their
// notification inbox changed.
func BroadcastNotification(userID uint) {
	key := strconv.FormatUint(uint64(userID), 10)

	userClientsMu.RLock()
	clients, exists := userClients[key]
	if !exists || len(clients) == 0 {
		userClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	userClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to set write deadline for broadcast")
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":    "refresh",
			"message": "New notification",
		})

		if err != nil {
			logger.Log.Warn().Err(err).Msg("failed to broadcast to client")
			userClientsMu.Lock()
			if clients, exists := userClients[key]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(userClients, key)
				}
			}
			userClientsMu.Unlock()
			conn.Close()
		}
	}
}

// Stream upgrades the request and keeps the connection registered for the
// authenticated user until it closes.
func Stream(c *gin.Context) {
	userID, err := utils.GetCurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	key := strconv.FormatUint(uint64(userID), 10)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.Error().Err(err).Msg("failed to set initial read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	userClientsMu.Lock()
	if userClients[key] == nil {
		userClients[key] = make(map[*websocket.Conn]bool)
	}
	userClients[key][conn] = true
	userClientsMu.Unlock()

	defer func() {
		userClientsMu.Lock()

		if clients, exists := userClients[key]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(userClients, key)
			}
		}

		userClientsMu.Unlock()
		conn.Close()

		logger.Log.Debug().Uint("user_id", userID).Msg("websocket connection closed")
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":    "connected",
		"message": "Notification stream established",
	})

	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to send welcome message")
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn().Err(err).Uint("user_id", userID).Msg("websocket error")
			}
			break
		}
	}
}
