package handler

import (
	"encoding/json"
	"net/http"

	"pagehunt/server/domain"
)

// RoomStatus はヘルスチェックで返すルームの状態です。
type RoomStatus interface {
	Len() int
	MaxPlayers() int
}

func NewHealthHandler(room RoomStatus, code domain.RoomCode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"room":       code,
			"members":    room.Len(),
			"maxPlayers": room.MaxPlayers(),
		})
	}
}
