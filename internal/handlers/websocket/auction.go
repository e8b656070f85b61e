package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aliaunction/auction-engine/internal/auth"
	"github.com/aliaunction/auction-engine/internal/database"
	"github.com/aliaunction/auction-engine/internal/engine"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// AuctionHandler owns the websocket side of the auction floor: it
// authenticates connections, routes messages into the engine, and fans the
// engine's emitted events back out to every connected client.
type AuctionHandler struct {
	db     database.Service
	engine *engine.Engine

	clientLock       sync.Mutex
	connectedClients map[*Client]bool
}

func NewAuctionHandler(db database.Service, eng *engine.Engine) *AuctionHandler {
	return &AuctionHandler{
		db:               db,
		engine:           eng,
		connectedClients: make(map[*Client]bool),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleAuctions upgrades the HTTP request to a WebSocket connection.
func (h *AuctionHandler) handleAuctions(w http.ResponseWriter, r *http.Request, user types.User) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Infof("Failed to upgrade connection: %v", err)
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}

	// Initialize a new client
	client := &Client{
		ID:          user.ID.String(),
		Email:       user.Email,
		Conn:        conn,
		Send:        make(chan []byte, 16),
		RateLimiter: rate.NewLimiter(1, 3),
	}

	h.clientLock.Lock()
	h.connectedClients[client] = true
	h.clientLock.Unlock()

	// Start handling the client
	go client.ReadMessages(h)
	go client.WriteMessages()
}

// HandleAuctionWebSocket integrates authentication and WebSocket handling.
func (h *AuctionHandler) HandleAuctionWebSocket(w http.ResponseWriter, r *http.Request) {
	// Validate the token from the cookie
	token, err := auth.ValidateTokenFromCookie(r)
	if err != nil || token == nil {
		log.Error("Invalid token: ", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var email string
	err = token.Get("email", &email)
	if err != nil {
		log.Error("Error retrieving email from token claims")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Check if the user exists
	user, err := h.db.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Error("User not found: ", err)
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	// Pass to WebSocket handler
	h.handleAuctions(w, r, user)
}

func (h *AuctionHandler) removeClient(client *Client) {
	h.clientLock.Lock()
	delete(h.connectedClients, client)
	h.clientLock.Unlock()
}

// Broadcast sends a message to all connected clients. A client that has
// disconnected or stopped draining its buffer is pruned instead of panicking
// or blocking the caller.
func (h *AuctionHandler) Broadcast(message []byte) {
	h.clientLock.Lock()
	defer h.clientLock.Unlock()

	for client := range h.connectedClients {
		if !client.TrySend(message) {
			delete(h.connectedClients, client)
			client.Disconnect(nil)
		}
	}
}

// Publish implements engine.Broadcaster: engine facts become typed
// websocket messages for every connected client.
func (h *AuctionHandler) Publish(event engine.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("Error marshalling event: ", err)
		return
	}
	message, err := json.Marshal(&Message{Type: event.EventType(), Data: string(payload)})
	if err != nil {
		log.Error("Error marshalling event envelope: ", err)
		return
	}
	h.Broadcast(message)
}

// StartPeriodicCheck runs the close worker: every interval, auctions past
// their deadline are finalized through the engine.
func (h *AuctionHandler) StartPeriodicCheck(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			closed, err := h.engine.CloseDueAuctions(context.Background(), h.engine.Now())
			if err != nil {
				log.Error("Error closing due auctions: ", err)
				continue
			}
			if closed > 0 {
				log.Infof("Closed %d auctions", closed)
			}
		}
	}()
}
