package application

import (
	"time"

	"pagehunt/server/domain"
)

// EventKind は描画・UI 側に通知するイベントの種別です。
type EventKind uint8

const (
	EventPlayerJoined EventKind = iota + 1
	EventPlayerLeft
	EventPlayerDied
	EventPlayerRespawned
	EventItemCollected
	EventRoundStarted
	EventRoundOver
	EventChatReceived
	EventConnectionError
)

func (k EventKind) String() string {
	switch k {
	case EventPlayerJoined:
		return "player-joined"
	case EventPlayerLeft:
		return "player-left"
	case EventPlayerDied:
		return "player-died"
	case EventPlayerRespawned:
		return "player-respawned"
	case EventItemCollected:
		return "item-collected"
	case EventRoundStarted:
		return "round-started"
	case EventRoundOver:
		return "round-over"
	case EventChatReceived:
		return "chat-received"
	case EventConnectionError:
		return "connection-error"
	default:
		return "unknown"
	}
}

// Event は Game が発行する通知です。Kind によって使うフィールドが変わります。
type Event struct {
	Kind     EventKind
	PlayerID domain.PeerID
	ItemID   int
	Chat     *domain.ChatMessage
	Err      error
	At       time.Time
}
