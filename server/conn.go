package server

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	deadlock "github.com/sasha-s/go-deadlock"
)

// ErrConnClosed 连接已关闭
var ErrConnClosed = errors.New("connection closed")

// Conn 一个客户端通道的发送端抽象，便于测试替换
type Conn interface {
	Send(b []byte) error
	Close() error
	RemoteAddr() string
}

const (
	sendQueueSize = 64
	writeWait     = 5 * time.Second
	closeWait     = time.Second
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     deadlock.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
	}
}

func (c *ClientConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// Send 将要发送的消息压入队列（非阻塞，满则丢弃，保证 Tick 准时）
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃本条消息（下一 Tick 会有新的全量状态）
	}
	return nil
}

// Close 关闭发送队列并通知对端；可重复调用
func (c *ClientConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	// 关闭发送通道以结束写协程
	close(c.send)
	c.mu.Unlock()

	// 对端卡住时写锁可能被 writePump 占用，关闭握手不能阻塞调用方（竞技场线程）
	go func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		_ = c.ws.Close()
	}()
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
