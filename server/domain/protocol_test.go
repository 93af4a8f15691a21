package domain_test

import (
	"bytes"
	"errors"
	"testing"

	domain "pagehunt/server/domain"
)

func TestEncodeMessage_TypeComesFirst(t *testing.T) {
	data, err := domain.EncodeMessage(&domain.MoveMessage{PlayerID: "p1", X: 10, Y: 20})
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte(`{"type":"move",`)) {
		t.Fatalf("encoded = %s, want type prefix", data)
	}
}

func TestParseMessage_DecodesTaggedVariant(t *testing.T) {
	data := []byte(`{"type":"itemPickup","itemId":3,"playerId":"p1"}`)

	msg, err := domain.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	pickup, ok := msg.(*domain.ItemPickupMessage)
	if !ok {
		t.Fatalf("ParseMessage() = %T, want *ItemPickupMessage", msg)
	}
	if pickup.ItemID != 3 || pickup.PlayerID != "p1" {
		t.Errorf("pickup = %+v", pickup)
	}
}

func TestParseMessage_FullStateKeepsFlatPlayerFields(t *testing.T) {
	in := &domain.FullStateMessage{
		Players: map[domain.PeerID]domain.Player{
			"host": {ID: "host", Name: "Alice", Vec2: domain.Vec2{X: 1, Y: 2}, CollectedPages: 3},
		},
		Pages:  []domain.Item{{ID: 0, Vec2: domain.Vec2{X: 5, Y: 6}}},
		Config: domain.DefaultGameConfig(),
		Round:  domain.RoundState{Started: true, Round: 2},
	}
	data, err := domain.EncodeMessage(in)
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	if !bytes.Contains(data, []byte(`"x":1`)) {
		t.Errorf("player position should be flattened: %s", data)
	}

	msg, err := domain.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	out := msg.(*domain.FullStateMessage)
	if got := out.Players["host"]; got.X != 1 || got.Y != 2 || got.CollectedPages != 3 {
		t.Errorf("player = %+v", got)
	}
	if out.Round.Round != 2 {
		t.Errorf("round = %d, want 2", out.Round.Round)
	}
	if out.Config.PagesToCollect != 8 {
		t.Errorf("pagesToCollect = %d, want 8", out.Config.PagesToCollect)
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: `{"type":`, want: domain.ErrMalformedMessage},
		{name: "missing type", data: `{"playerId":"p1"}`, want: domain.ErrMalformedMessage},
		{name: "unknown type", data: `{"type":"teleport"}`, want: domain.ErrUnknownMessageType},
		{name: "wrong field type", data: `{"type":"move","playerId":"p1","x":"left"}`, want: domain.ErrMalformedMessage},
		{name: "move without player", data: `{"type":"move","x":1,"y":2}`, want: domain.ErrMalformedMessage},
		{name: "join without id", data: `{"type":"join","player":{"name":"x"}}`, want: domain.ErrMalformedMessage},
		{name: "negative item", data: `{"type":"itemPickup","itemId":-1,"playerId":"p1"}`, want: domain.ErrMalformedMessage},
		{name: "heartbeat without sender", data: `{"type":"heartbeat","timestamp":1}`, want: domain.ErrMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseMessage([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseMessage() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeMessage_EmptyPayload(t *testing.T) {
	data, err := domain.EncodeMessage(&domain.PlayerMoveMessage{})
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	msg, err := domain.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage(%s) error = %v", data, err)
	}
	if msg.Type() != domain.TypePlayerMove {
		t.Errorf("Type() = %s, want %s", msg.Type(), domain.TypePlayerMove)
	}
}

func TestPlayerDelta_Apply(t *testing.T) {
	p := domain.Player{ID: "p1", Name: "Bob", Vec2: domain.Vec2{X: 1, Y: 1}}
	spectating := true

	got := domain.PlayerDelta{Spectating: &spectating}.Apply(p)
	if !got.Spectating || got.Name != "Bob" || got.X != 1 {
		t.Errorf("Apply() = %+v", got)
	}

	got = domain.PositionDelta(domain.Vec2{X: 7, Y: 8}).Apply(got)
	if got.X != 7 || got.Y != 8 || !got.Spectating {
		t.Errorf("Apply() = %+v", got)
	}
}
