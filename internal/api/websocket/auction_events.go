package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/config"
	"github.com/nathangreen1632/MineralCache-sub000/internal/metrics"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
)

// AuctionEventHub fans authoritative auction events out to WebSocket
// subscribers. Each auction is a room; a single Run loop drains the
// broadcast queue, so subscribers in a room observe one auction's events
// in the order they were published.
type AuctionEventHub struct {
	logger  *zap.Logger
	cfg     config.BroadcasterConfig
	metrics *metrics.Auction

	clientsLock sync.RWMutex
	clients     map[uuid.UUID]*Client
	rooms       map[uuid.UUID]map[uuid.UUID]*Client

	broadcast  chan *bidding.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// Client is one WebSocket subscriber in one auction room
type Client struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	conn      *websocket.Conn
	send      chan *bidding.Event
	hub       *AuctionEventHub
	userID    uuid.UUID
}

// NewAuctionEventHub creates the hub
func NewAuctionEventHub(cfg config.BroadcasterConfig, m *metrics.Auction, logger *zap.Logger) *AuctionEventHub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 16
	}
	return &AuctionEventHub{
		logger:     logger,
		cfg:        cfg,
		metrics:    m,
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[uuid.UUID]map[uuid.UUID]*Client),
		broadcast:  make(chan *bidding.Event, cfg.QueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

var _ bidding.EventSink = (*AuctionEventHub)(nil)

// Publish enqueues an event for delivery. It never blocks the caller: when
// the queue is full, ticks are dropped silently and other events are
// dropped with a warning. The engine's state is already committed, so a
// dropped event costs freshness, not correctness.
func (h *AuctionEventHub) Publish(event *bidding.Event) {
	select {
	case h.broadcast <- event:
	default:
		if event.Kind != bidding.EventTick {
			h.logger.Warn("broadcast queue full, dropping event",
				zap.String("kind", string(event.Kind)),
				zap.String("auction_id", event.AuctionID.String()))
		}
	}
}

// Run drives registration, delivery, and keepalive until ctx is canceled
func (h *AuctionEventHub) Run(ctx context.Context) {
	ping := h.cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.shutdown()
			return
		case <-h.done:
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.deliver(event)
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// Stop shuts the hub down outside of context cancellation
func (h *AuctionEventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// RegisterClient attaches a subscriber to its auction room
func (h *AuctionEventHub) RegisterClient(client *Client) {
	h.register <- client
}

// RoomSize reports the subscriber count for one auction
func (h *AuctionEventHub) RoomSize(auctionID uuid.UUID) int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.rooms[auctionID])
}

func (h *AuctionEventHub) registerClient(client *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[client.ID] = client
	room, ok := h.rooms[client.AuctionID]
	if !ok {
		room = make(map[uuid.UUID]*Client)
		h.rooms[client.AuctionID] = room
	}
	room[client.ID] = client

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}
	h.logger.Debug("websocket client joined room",
		zap.String("client_id", client.ID.String()),
		zap.String("auction_id", client.AuctionID.String()))
}

func (h *AuctionEventHub) unregisterClient(client *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, exists := h.clients[client.ID]; !exists {
		return
	}
	delete(h.clients, client.ID)
	if room, ok := h.rooms[client.AuctionID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, client.AuctionID)
		}
	}
	close(client.send)
	if h.metrics != nil {
		h.metrics.WSConnections.Dec()
	}
}

// deliver routes one event to its auction room. A targeted event reaches
// only connections authenticated as the target user. A subscriber whose
// buffer is full is disconnected rather than allowed to stall the room,
// except for ticks, which are simply skipped.
func (h *AuctionEventHub) deliver(event *bidding.Event) {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	room, ok := h.rooms[event.AuctionID]
	if !ok {
		return
	}
	for _, client := range room {
		if event.TargetUserID != nil && client.userID != *event.TargetUserID {
			continue
		}
		select {
		case client.send <- event:
		default:
			if event.Kind == bidding.EventTick {
				continue
			}
			h.logger.Warn("subscriber too slow, disconnecting",
				zap.String("client_id", client.ID.String()),
				zap.String("auction_id", client.AuctionID.String()))
			go func(c *Client) {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
			}(client)
		}
	}
}

func (h *AuctionEventHub) pingClients() {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	deadline := time.Now().Add(h.cfg.WriteDeadline)
	for _, client := range h.clients {
		if err := client.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			go func(c *Client) {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
			}(client)
		}
	}
}

func (h *AuctionEventHub) shutdown() {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for _, client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// NewClient creates a subscriber for one auction room. userID is uuid.Nil
// for anonymous viewers, who receive everything except targeted events.
func NewClient(conn *websocket.Conn, hub *AuctionEventHub, auctionID, userID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.New(),
		AuctionID: auctionID,
		conn:      conn,
		send:      make(chan *bidding.Event, hub.cfg.ClientBuffer),
		hub:       hub,
		userID:    userID,
	}
}

// ReadPump consumes the connection until close. Subscribers send nothing
// meaningful upstream; reads exist to process control frames and detect
// disconnects.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	readDeadline := c.hub.cfg.ReadDeadline
	if readDeadline <= 0 {
		readDeadline = 60 * time.Second
	}
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error",
					zap.String("client_id", c.ID.String()),
					zap.Error(err))
			}
			return
		}
	}
}

// WritePump serializes queued events onto the connection
func (c *Client) WritePump() {
	defer c.conn.Close()

	writeDeadline := c.hub.cfg.WriteDeadline
	if writeDeadline <= 0 {
		writeDeadline = 10 * time.Second
	}
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
