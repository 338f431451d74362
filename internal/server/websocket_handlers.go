package server

import (
	"context"

	"whereismypet/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// CatalogWebSocketHandler streams catalog events to every viewer and, for
// signed-in viewers, their own notifications.
func (s *Server) CatalogWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Empty for anonymous viewers
		userID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(conn, userID)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			observability.GlobalLogger.WarnContext(context.Background(), "catalog websocket rejected",
				"user_id", userID, "error", err)
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
