package server

import (
	"net/http"

	adapterwebsocket "pagehunt/server/adapter/websocket"
	"pagehunt/server/domain"
	"pagehunt/server/handler"
)

// Route はホストの直接接続用のルーティングです。
func Route(network *adapterwebsocket.Network, room handler.RoomStatus, code domain.RoomCode) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /peer/{address}", handler.NewAcceptHandler(network))
	mux.Handle("GET /healthz", handler.NewHealthHandler(room, code))
	return mux
}
