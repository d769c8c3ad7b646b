package websocket

import (
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/earnings"
)

type MessageType string

const (
	MessageTypeEarningsUpdated MessageType = "earnings_updated"
	MessageTypeConnected       MessageType = "connected"
	MessageTypePing            MessageType = "ping"
	MessageTypePong            MessageType = "pong"
	MessageTypeError           MessageType = "error"
)

type IncomingMessage struct {
	Type MessageType `json:"type"`
}

type OutgoingMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type EarningsMessage struct {
	Type               MessageType              `json:"type"`
	Earnings           earnings.CreatorEarnings `json:"earnings"`
	AvailableForPayout decimal.Decimal          `json:"available_for_payout"`
}
