package domain_test

import (
	"errors"
	"strings"
	"testing"

	domain "pagehunt/server/domain"
)

func TestNewRoomCode_UsesUnambiguousAlphabet(t *testing.T) {
	for range 100 {
		code := domain.NewRoomCode()
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		if strings.ContainsAny(code.String(), "IO01") {
			t.Fatalf("code %q contains confusable characters", code)
		}
		if _, err := domain.ParseRoomCode(code.String()); err != nil {
			t.Fatalf("ParseRoomCode(%q) error = %v", code, err)
		}
	}
}

func TestParseRoomCode(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.RoomCode
		wantErr bool
	}{
		{in: "ABC234", want: "ABC234"},
		{in: "  abc234 ", want: "ABC234"},
		{in: "ABC23", wantErr: true},
		{in: "ABC2345", wantErr: true},
		{in: "ABCDE0", wantErr: true},
		{in: "ABCDEI", wantErr: true},
	}
	for _, tt := range tests {
		got, err := domain.ParseRoomCode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidRoomCode) {
				t.Errorf("ParseRoomCode(%q) error = %v, want ErrInvalidRoomCode", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRoomCode(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRoomCode_Addresses(t *testing.T) {
	code := domain.RoomCode("XYZ789")

	if got, want := code.HostAddress(), domain.PeerID("pagehunt-XYZ789-host"); got != want {
		t.Errorf("HostAddress() = %q, want %q", got, want)
	}
	g1, g2 := code.GuestAddress(), code.GuestAddress()
	if g1 == g2 {
		t.Errorf("GuestAddress() should be unique, got %q twice", g1)
	}
	if !strings.HasPrefix(g1.String(), "pagehunt-XYZ789-") {
		t.Errorf("GuestAddress() = %q", g1)
	}
}

func TestRoleFor(t *testing.T) {
	if got := domain.RoleFor(""); got != domain.RoleHost {
		t.Errorf("RoleFor(\"\") = %v, want host", got)
	}
	if got := domain.RoleFor("ABC234"); got != domain.RoleGuest {
		t.Errorf("RoleFor(code) = %v, want guest", got)
	}
}
