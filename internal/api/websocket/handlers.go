package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the storefront origin once it is finalized
		return true
	},
}

// Handler owns the auction event WebSocket endpoint
type Handler struct {
	logger *zap.Logger
	hub    *AuctionEventHub
}

// NewHandler creates the WebSocket handler around an existing hub
func NewHandler(hub *AuctionEventHub, logger *zap.Logger) *Handler {
	return &Handler{logger: logger, hub: hub}
}

// Hub exposes the event hub for wiring into the bidding engine
func (h *Handler) Hub() *AuctionEventHub {
	return h.hub
}

// Identity resolves the authenticated user for a request. Anonymous
// viewers are allowed; they just never receive targeted events.
type Identity func(r *http.Request) (uuid.UUID, bool)

// HandleAuctionRoom upgrades the connection and joins the auction's room
func (h *Handler) HandleAuctionRoom(identity Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid auction id", http.StatusBadRequest)
			return
		}

		userID := uuid.Nil
		if identity != nil {
			if id, ok := identity(r); ok {
				userID = id
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("websocket upgrade failed",
				zap.Error(err),
				zap.String("remote_addr", r.RemoteAddr))
			return
		}

		client := NewClient(conn, h.hub, auctionID, userID)
		h.hub.RegisterClient(client)

		go client.WritePump()
		go client.ReadPump()

		h.logger.Debug("websocket connection established",
			zap.String("client_id", client.ID.String()),
			zap.String("auction_id", auctionID.String()))
	}
}
