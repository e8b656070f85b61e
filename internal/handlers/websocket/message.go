package websocket

import (
	"context"
	"encoding/json"
	goerrors "errors"

	"github.com/aliaunction/auction-engine/pkg/errors"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Message struct {
	Type string `json:"type"` // Type of the message (e.g., "bid", "update")
	Data string `json:"data"` // Payload of the message
}

// ParseMessage validates and parses incoming messages.
func ParseMessage(rawMessage []byte) (*Message, error) {
	var msg Message
	err := json.Unmarshal(rawMessage, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// HandleMessage routes the message based on its type.
func (h *AuctionHandler) HandleMessage(client *Client, rawMessage []byte) {
	if !client.RateLimiter.Allow() {
		log.Warnf("Rate limit exceeded for client %s", client.ID)
		client.TrySend(errors.ErrRateLimitExceeded.ToJSON())
		return
	}

	msg, err := ParseMessage(rawMessage)
	if err != nil {
		log.Infof("Invalid message from client %s: %v", client.ID, err)
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}

	switch msg.Type {
	case "join":
		log.Debug("Client joined the auction")
	case "bid":
		h.handleBidMessage(client, msg.Data)
	case "status":
		h.handleStatusMessage(client, msg.Data)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		client.TrySend(errors.ErrUnknownMessage.ToJSON())
	}
}

// handleBidMessage feeds a client's bid into the engine. Acceptance is
// broadcast to everyone by the engine's event stream; the rejection goes
// back to the bidder alone.
func (h *AuctionHandler) handleBidMessage(client *Client, data string) {
	type BidMessage struct {
		AuctionID string `json:"auction_id"`
		Amount    string `json:"amount"`
	}
	var bidMsg BidMessage
	if err := json.Unmarshal([]byte(data), &bidMsg); err != nil {
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}

	auctionID, err := uuid.Parse(bidMsg.AuctionID)
	if err != nil {
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}
	bidderID, err := uuid.Parse(client.ID)
	if err != nil {
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}
	amount, err := decimal.NewFromString(bidMsg.Amount)
	if err != nil {
		client.TrySend(errors.ErrAmountNotPositive.ToJSON())
		return
	}

	result, err := h.engine.PlaceBid(context.Background(), auctionID, bidderID, amount, h.engine.Now())
	if err != nil {
		var appErr *errors.AppError
		if goerrors.As(err, &appErr) {
			client.TrySend(appErr.ToJSON())
		} else {
			log.Error("Error placing bid: ", err)
			client.TrySend(errors.ErrInternalServer.ToJSON())
		}
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Error("Error marshalling bid result: ", err)
		return
	}
	response, err := json.Marshal(&Message{Type: "bid_result", Data: string(payload)})
	if err != nil {
		log.Error("Error marshalling bid response: ", err)
		return
	}
	client.TrySend(response)
}

// handleStatusMessage returns the three status axes for one auction.
func (h *AuctionHandler) handleStatusMessage(client *Client, data string) {
	type StatusMessage struct {
		AuctionID string `json:"auction_id"`
	}
	var statusMsg StatusMessage
	if err := json.Unmarshal([]byte(data), &statusMsg); err != nil {
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}

	auctionID, err := uuid.Parse(statusMsg.AuctionID)
	if err != nil {
		client.TrySend(errors.ErrBadMessageFormat.ToJSON())
		return
	}

	status, err := h.engine.GetStatus(context.Background(), auctionID, h.engine.Now())
	if err != nil {
		var appErr *errors.AppError
		if goerrors.As(err, &appErr) {
			client.TrySend(appErr.ToJSON())
		} else {
			client.TrySend(errors.ErrInternalServer.ToJSON())
		}
		return
	}

	payload, err := json.Marshal(status)
	if err != nil {
		log.Error("Error marshalling status: ", err)
		return
	}
	response, err := json.Marshal(&Message{Type: "status", Data: string(payload)})
	if err != nil {
		log.Error("Error marshalling status response: ", err)
		return
	}
	client.TrySend(response)
}
