package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	roomCodeLength = 6
	// 読み間違えやすい I, O, 0, 1 は含めない
	roomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	addressPrefix = "pagehunt"
	hostSuffix    = "host"
)

// ErrInvalidRoomCode はルームコードの形式が不正な場合に返されるエラーです。
var ErrInvalidRoomCode = errors.New("invalid room code")

// RoomCode はホストのアドレスを導出するための6文字の共有コードです。
type RoomCode string

func NewRoomCode() RoomCode {
	b := make([]byte, roomCodeLength)
	limit := big.NewInt(int64(len(roomCodeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand が失敗するのは致命的な環境異常のみ
			panic(fmt.Sprintf("roomcode: read random: %v", err))
		}
		b[i] = roomCodeChars[idx.Int64()]
	}
	return RoomCode(b)
}

// ParseRoomCode は入力を正規化（前後の空白除去、大文字化）して検証します。
func ParseRoomCode(s string) (RoomCode, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != roomCodeLength {
		return "", fmt.Errorf("%w: %q must be %d characters", ErrInvalidRoomCode, s, roomCodeLength)
	}
	for _, c := range code {
		if !strings.ContainsRune(roomCodeChars, c) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidRoomCode, s, c)
		}
	}
	return RoomCode(code), nil
}

func (c RoomCode) String() string {
	return string(c)
}

// HostAddress はルームコードから決まるホストのアドレスです。
// ゲストはこのアドレスに対してチャネルを開設します。
func (c RoomCode) HostAddress() PeerID {
	return PeerID(fmt.Sprintf("%s-%s-%s", addressPrefix, c, hostSuffix))
}

// GuestAddress はこのルームに参加するゲスト用の一意なアドレスを発行します。
func (c RoomCode) GuestAddress() PeerID {
	return NewPeerID(fmt.Sprintf("%s-%s", addressPrefix, c))
}
