package domain

import "github.com/google/uuid"

// PeerID はセッションに参加するピアの識別子です。
// ピアIDはそのままプレイヤーIDとして使われます。
type PeerID string

func NewPeerID(prefix string) PeerID {
	if prefix == "" {
		return PeerID(uuid.NewString())
	}
	return PeerID(prefix + "-" + uuid.NewString())
}

func (id PeerID) String() string {
	return string(id)
}

func (id PeerID) IsEmpty() bool {
	return id == ""
}

// Role はセッション内でのピアの役割です。
type Role uint8

const (
	RoleHost Role = iota + 1
	RoleGuest
)

// RoleFor は起動時に接続先が指定されたかどうかで役割を決めます。
func RoleFor(target string) Role {
	if target == "" {
		return RoleHost
	}
	return RoleGuest
}

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "unknown"
	}
}
