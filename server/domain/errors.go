package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect はチャネルの開設（ランデブー含む）に失敗した場合のエラーです。
	ErrConnect = errors.New("connection failed")
	// ErrRoomFull はルームの参加上限に達している場合に返されるエラーです。
	ErrRoomFull = errors.New("room is full")
	// ErrChannelClosed は閉じたチャネルに送信しようとした場合に返されるエラーです。
	// 呼び出し側は既にメンバーから外しているはずなので、ソフトな失敗として扱います。
	ErrChannelClosed = errors.New("channel is closed")
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrPeerNotFound は宛先のピアがメンバーに存在しない場合に返されるエラーです。
	ErrPeerNotFound = errors.New("peer not found")
	// ErrUnknownMessageType はカタログにないメッセージ種別を受信した場合のエラーです。
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedMessage はメッセージのデコードや検証に失敗した場合のエラーです。
	ErrMalformedMessage = errors.New("malformed message")
	// ErrNetworkClosed は閉じたネットワークアダプタを使おうとした場合のエラーです。
	ErrNetworkClosed = errors.New("network is closed")
)

// ConnectError はチャネル開設の失敗を表します。
// errors.Is(err, ErrConnect) で判定できます。
type ConnectError struct {
	Target PeerID
	Err    error
}

func NewConnectError(target PeerID, err error) *ConnectError {
	return &ConnectError{Target: target, Err: err}
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnect, e.Err}
}
