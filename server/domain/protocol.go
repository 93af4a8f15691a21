package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType はメッセージの種別（type フィールドの値）です。
type MessageType string

const (
	TypeJoin         MessageType = "join"
	TypeMove         MessageType = "move"
	TypePlayerMove   MessageType = "playerMove"
	TypePlayerUpdate MessageType = "playerUpdate"
	TypeDeath        MessageType = "death"
	TypeRespawn      MessageType = "respawn"
	TypeItemPickup   MessageType = "itemPickup"
	TypeFullState    MessageType = "fullState"
	TypeTickUpdate   MessageType = "tickUpdate"
	TypeOutcome      MessageType = "outcome"
	TypeChat         MessageType = "chat"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeRoomFull     MessageType = "roomFull"
)

// Message はピア間でやり取りされるメッセージです。
// 具象型はこのファイルで定義されたポインタ型のいずれかに限られます。
type Message interface {
	Type() MessageType
	validate() error
}

// JoinMessage は新しいプレイヤーの参加を通知します。
type JoinMessage struct {
	Player Player `json:"player"`
}

// MoveMessage はプレイヤーの絶対座標を通知します。
type MoveMessage struct {
	PlayerID PeerID  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PlayerMoveMessage はホストが速度を適用する相対入力です。送信者が移動対象になります。
type PlayerMoveMessage struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PlayerUpdateMessage はプレイヤーの部分更新を通知します。
type PlayerUpdateMessage struct {
	PlayerID PeerID      `json:"playerId"`
	Data     PlayerDelta `json:"data"`
}

type DeathMessage struct {
	PlayerID PeerID `json:"playerId"`
}

type RespawnMessage struct {
	PlayerID PeerID `json:"playerId"`
}

type ItemPickupMessage struct {
	ItemID   int    `json:"itemId"`
	PlayerID PeerID `json:"playerId"`
}

// FullStateMessage はエンティティストア全体のスナップショットです。
type FullStateMessage struct {
	Players map[PeerID]Player `json:"players"`
	Pages   []Item            `json:"pages"`
	Pursuer Pursuer           `json:"pursuer"`
	Config  GameConfig        `json:"config"`
	Round   RoundState        `json:"round"`
}

// TickUpdateMessage は毎tickの位置とPursuerの状態です。ページは含みません。
type TickUpdateMessage struct {
	Players map[PeerID]Player `json:"players"`
	Pursuer Pursuer           `json:"pursuer"`
}

// OutcomeMessage はラウンドの勝者を通知します。
type OutcomeMessage struct {
	PlayerID   PeerID `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

// ChatMessage はコアが解釈せずに中継するチャットです。
type ChatMessage struct {
	SenderID   PeerID `json:"senderId"`
	SenderName string `json:"senderName"`
	Color      string `json:"color"`
	Message    string `json:"message"`
}

// HeartbeatMessage は往復遅延の計測に使うタイムスタンプです。
// 受信側は送信者にそのまま送り返します。
type HeartbeatMessage struct {
	SenderID  PeerID `json:"senderId"`
	Timestamp int64  `json:"timestamp"` // unix ミリ秒
}

// RoomFullMessage は参加を拒否されたピアだけに送られます。
type RoomFullMessage struct {
	MaxPlayers int `json:"maxPlayers"`
}

func (*JoinMessage) Type() MessageType         { return TypeJoin }
func (*MoveMessage) Type() MessageType         { return TypeMove }
func (*PlayerMoveMessage) Type() MessageType   { return TypePlayerMove }
func (*PlayerUpdateMessage) Type() MessageType { return TypePlayerUpdate }
func (*DeathMessage) Type() MessageType        { return TypeDeath }
func (*RespawnMessage) Type() MessageType      { return TypeRespawn }
func (*ItemPickupMessage) Type() MessageType   { return TypeItemPickup }
func (*FullStateMessage) Type() MessageType    { return TypeFullState }
func (*TickUpdateMessage) Type() MessageType   { return TypeTickUpdate }
func (*OutcomeMessage) Type() MessageType      { return TypeOutcome }
func (*ChatMessage) Type() MessageType         { return TypeChat }
func (*HeartbeatMessage) Type() MessageType    { return TypeHeartbeat }
func (*RoomFullMessage) Type() MessageType     { return TypeRoomFull }

var (
	errMissingPlayerID = errors.New("missing player id")
	errNonFinite       = errors.New("non-finite coordinate")
)

func (m *JoinMessage) validate() error {
	if m.Player.ID.IsEmpty() {
		return errMissingPlayerID
	}
	if !m.Player.IsFinite() {
		return errNonFinite
	}
	return nil
}

func (m *MoveMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	if !(Vec2{X: m.X, Y: m.Y}).IsFinite() {
		return errNonFinite
	}
	return nil
}

func (m *PlayerMoveMessage) validate() error {
	if !(Vec2{X: m.DX, Y: m.DY}).IsFinite() {
		return errNonFinite
	}
	return nil
}

func (m *PlayerUpdateMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	for _, f := range []*float64{m.Data.X, m.Data.Y, m.Data.RespawnTimer} {
		if f != nil && !isFinite(*f) {
			return errNonFinite
		}
	}
	return nil
}

func (m *DeathMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	return nil
}

func (m *RespawnMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	return nil
}

func (m *ItemPickupMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	if m.ItemID < 0 {
		return fmt.Errorf("negative item id %d", m.ItemID)
	}
	return nil
}

func (m *FullStateMessage) validate() error {
	for id, p := range m.Players {
		if !p.IsFinite() {
			return fmt.Errorf("player %s: %w", id, errNonFinite)
		}
	}
	if !m.Pursuer.IsFinite() {
		return errNonFinite
	}
	return nil
}

func (m *TickUpdateMessage) validate() error {
	for id, p := range m.Players {
		if !p.IsFinite() {
			return fmt.Errorf("player %s: %w", id, errNonFinite)
		}
	}
	if !m.Pursuer.IsFinite() {
		return errNonFinite
	}
	return nil
}

func (m *OutcomeMessage) validate() error {
	if m.PlayerID.IsEmpty() {
		return errMissingPlayerID
	}
	return nil
}

func (m *ChatMessage) validate() error { return nil }

func (m *HeartbeatMessage) validate() error {
	if m.SenderID.IsEmpty() {
		return errors.New("missing sender id")
	}
	return nil
}

func (m *RoomFullMessage) validate() error { return nil }

// newMessage は種別に対応する空のメッセージを返します。
func newMessage(t MessageType) (Message, error) {
	switch t {
	case TypeJoin:
		return &JoinMessage{}, nil
	case TypeMove:
		return &MoveMessage{}, nil
	case TypePlayerMove:
		return &PlayerMoveMessage{}, nil
	case TypePlayerUpdate:
		return &PlayerUpdateMessage{}, nil
	case TypeDeath:
		return &DeathMessage{}, nil
	case TypeRespawn:
		return &RespawnMessage{}, nil
	case TypeItemPickup:
		return &ItemPickupMessage{}, nil
	case TypeFullState:
		return &FullStateMessage{}, nil
	case TypeTickUpdate:
		return &TickUpdateMessage{}, nil
	case TypeOutcome:
		return &OutcomeMessage{}, nil
	case TypeChat:
		return &ChatMessage{}, nil
	case TypeHeartbeat:
		return &HeartbeatMessage{}, nil
	case TypeRoomFull:
		return &RoomFullMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, t)
	}
}

// ParseMessage はバイト列を type フィールドで判別してデコードします。
func ParseMessage(data []byte) (Message, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	msg, err := newMessage(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, head.Type, err)
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, head.Type, err)
	}
	return msg, nil
}

// EncodeMessage はメッセージを type フィールド付きのJSONオブジェクトにエンコードします。
func EncodeMessage(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformedMessage)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	typ, err := json.Marshal(msg.Type())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}

	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("%w: %s payload is not an object", ErrMalformedMessage, msg.Type())
	}

	// {"type":"...", + ペイロードのフィールド
	out := make([]byte, 0, len(body)+len(typ)+9)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
