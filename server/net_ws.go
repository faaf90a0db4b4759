package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 1 << 16
	readWait       = 60 * time.Second
)

// readPump 读取客户端消息，解码为命令注入竞技场
// 任何入站数据只在此协程解析，状态修改交由竞技场线程
func (a *Arena) readPump(c *ClientConn, id string) {
	// 读泵退出时，通知竞技场在其线程中移除该头像
	defer a.RequestLeave(id, c)
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(readWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Infow("connection read error", "id", id, "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		a.Touch(id)

		cmd, err := DecodeCommand(payload, id)
		if err != nil {
			// 格式错误、未知类型或冒用 id：丢弃，连接保持
			a.metrics.IncDropped()
			if errors.Is(err, ErrIdentity) {
				Log.Warnw("dropping message with foreign id", "id", id, "err", err)
			} else {
				Log.Debugw("dropping message", "id", id, "err", err)
			}
			continue
		}
		a.Submit(cmd)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：一个连接对应一个头像，id 由远端地址生成
func (a *Arena) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClientConn(ws)
	go client.writePump()

	id, err := a.Join(r.Context(), client)
	if err != nil {
		Log.Warnw("join rejected", "remote", r.RemoteAddr, "err", err)
		_ = client.Close()
		return
	}
	go a.readPump(client, id)
}
