package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adapterwebsocket "pagehunt/server/adapter/websocket"
	"pagehunt/server/domain"
	"pagehunt/server/handler"
)

const hostAddress domain.PeerID = "pagehunt-ABCDEF-host"

func newHostServer(t *testing.T) (*adapterwebsocket.Network, *httptest.Server) {
	t.Helper()
	network := adapterwebsocket.NewNetwork(hostAddress, "")
	mux := http.NewServeMux()
	mux.Handle("GET /peer/{address}", handler.NewAcceptHandler(network))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		network.Close()
		srv.Close()
	})
	return network, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestAcceptHandler_DialAndExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, srv := newHostServer(t)
	guest := adapterwebsocket.NewNetwork("guest-1", wsURL(srv))

	guestCh, err := guest.Dial(ctx, hostAddress)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	hostCh, err := host.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if hostCh.RemoteID() != "guest-1" {
		t.Errorf("RemoteID() = %s, want guest-1", hostCh.RemoteID())
	}

	received := make(chan domain.Message, 1)
	go hostCh.Run(ctx, func(_ context.Context, _ domain.PeerID, msg domain.Message) {
		received <- msg
	})
	go guestCh.Run(ctx, func(context.Context, domain.PeerID, domain.Message) {})

	if err := guestCh.Send(&domain.ChatMessage{SenderID: "guest-1", Message: "hello"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case msg := <-received:
		chat, ok := msg.(*domain.ChatMessage)
		if !ok || chat.Message != "hello" {
			t.Errorf("received %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	guestCh.Close()
	select {
	case <-hostCh.Done():
	case <-ctx.Done():
		t.Fatal("host channel did not close after the guest left")
	}
}

func TestAcceptHandler_UnknownAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, srv := newHostServer(t)
	guest := adapterwebsocket.NewNetwork("guest-1", wsURL(srv))

	_, err := guest.Dial(ctx, "pagehunt-ZZZZZZ-host")
	if !errors.Is(err, domain.ErrConnect) {
		t.Fatalf("Dial() error = %v, want ErrConnect", err)
	}
	var connErr *domain.ConnectError
	if !errors.As(err, &connErr) || connErr.Target != "pagehunt-ZZZZZZ-host" {
		t.Errorf("error = %#v, want *ConnectError with the target", err)
	}
}

func TestAcceptHandler_MissingFrom(t *testing.T) {
	_, srv := newHostServer(t)

	resp, err := http.Get(srv.URL + "/peer/" + hostAddress.String())
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthHandler(t *testing.T) {
	dir := domain.NewDirectory("host", domain.RoleHost, 10)
	rec := httptest.NewRecorder()
	handler.NewHealthHandler(dir, "ABCDEF").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"room":"ABCDEF"`) || !strings.Contains(body, `"maxPlayers":10`) {
		t.Errorf("body = %s", body)
	}
}
