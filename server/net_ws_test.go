package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startWSArena(t *testing.T) (*Arena, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TickPeriod = 5 * time.Millisecond
	a := NewArena(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return a, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// waitForMessage 读取直到 match 返回 true
func waitForMessage(t *testing.T, conn *websocket.Conn, match func(m wireMessage) bool) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var m wireMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			t.Fatalf("decode %s: %v", payload, err)
		}
		if match(m) {
			return m
		}
	}
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	a, wsURL := startWSArena(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := waitForMessage(t, conn, func(m wireMessage) bool { return m.Type == MsgMyConnect })
	id := hello.ID
	if id == "" {
		t.Fatalf("myConnect without id")
	}
	if _, ok := hello.Avatars[id]; !ok {
		t.Fatalf("myConnect snapshot missing own avatar %q", id)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport","id":"`+id+`"}`)); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}
	move := `{"type":"avatarMove","id":"` + id + `","offset":{"x":3,"y":4}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(move)); err != nil {
		t.Fatalf("write move: %v", err)
	}

	waitForMessage(t, conn, func(m wireMessage) bool {
		av, ok := m.Avatars[id]
		return m.Type == MsgUpdateAvatars && ok && av.X == 3 && av.Y == 4
	})
	if got := a.Metrics().Snapshot()["commands_dropped"].(int64); got != 2 {
		t.Fatalf("commands_dropped = %d, want 2", got)
	}

	// 客户端直接断开：读协程退出后头像被移除
	_ = conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := a.Store().Get(id); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("avatar %q still present after disconnect", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.Conns().Len() != 0 {
		t.Fatalf("connection set not cleaned: %d", a.Conns().Len())
	}
}

func TestClientConnCloseDoesNotBlockOnStalledPeer(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConns <- ws
	}))
	defer srv.Close()

	// 客户端从不读取，服务端写协程最终卡在 WriteMessage 上
	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer peer.Close()

	cc := NewClientConn(<-serverConns)
	go cc.writePump()

	frame := bytes.Repeat([]byte("x"), 1<<20)
	for i := 0; i < 32; i++ {
		if err := cc.Send(frame); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := cc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Close on stalled peer took %v", elapsed)
	}
	if err := cc.Send(frame); err != ErrConnClosed {
		t.Fatalf("send after close: err = %v, want ErrConnClosed", err)
	}
	if err := cc.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
