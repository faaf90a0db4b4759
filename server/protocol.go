package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// 消息类型（与客户端约定，勿随意修改）
const (
	MsgAvatarMove   = "avatarMove"
	MsgAvatarAttack = "avatarAttack"
	MsgAvatarDodge  = "avatarDodge"
	MsgPong         = "pong"

	MsgMyConnect     = "myConnect"
	MsgUpdateAvatars = "updateAvatars"
	MsgPing          = "ping"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
	ErrIdentity    = errors.New("message id does not match connection")
)

// Offset 移动偏移量
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InboundMessage 客户端上行消息的统一 JSON 结构，type 字段决定变体
// 示例：{"type":"avatarMove","id":"1.2.3.4:5678","offset":{"x":2,"y":0}}
type InboundMessage struct {
	Type   string   `json:"type" jsonschema:"enum=avatarMove,enum=avatarAttack,enum=avatarDodge,enum=pong"`
	ID     string   `json:"id"`
	Offset *Offset  `json:"offset,omitempty"`
	Angle  *float64 `json:"angle,omitempty"`
}

// Command 解码并校验后的命令，ID 已绑定为连接的头像 id
type Command struct {
	Type   string
	ID     string
	Offset Offset
	Angle  float64
}

// MyConnectMessage 接入后立即发送一次
type MyConnectMessage struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Avatars map[string]Avatar `json:"avatars"`
}

// UpdateAvatarsMessage 每个 Tick 广播的全量状态
type UpdateAvatarsMessage struct {
	Type    string            `json:"type"`
	Avatars map[string]Avatar `json:"avatars"`
}

// PingMessage 心跳
type PingMessage struct {
	Type string `json:"type"`
}

// DecodeCommand 解析上行消息；boundID 为服务端绑定到该连接的 id，
// 客户端声明的 id 缺失或不一致时拒绝
func DecodeCommand(payload []byte, boundID string) (Command, error) {
	var im InboundMessage
	if err := json.Unmarshal(payload, &im); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if im.ID == "" {
		return Command{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if im.ID != boundID {
		return Command{}, fmt.Errorf("%w: got %q", ErrIdentity, im.ID)
	}

	cmd := Command{Type: im.Type, ID: boundID}
	switch im.Type {
	case MsgAvatarMove:
		if im.Offset == nil || !finite(im.Offset.X) || !finite(im.Offset.Y) {
			return Command{}, fmt.Errorf("%w: bad offset", ErrMalformed)
		}
		cmd.Offset = *im.Offset
	case MsgAvatarAttack, MsgAvatarDodge:
		if im.Angle == nil || !finite(*im.Angle) {
			return Command{}, fmt.Errorf("%w: bad angle", ErrMalformed)
		}
		cmd.Angle = *im.Angle
	case MsgPong:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownType, im.Type)
	}
	return cmd, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EncodeMyConnect 编码接入消息
func EncodeMyConnect(id string, avatars map[string]Avatar) ([]byte, error) {
	return json.Marshal(MyConnectMessage{Type: MsgMyConnect, ID: id, Avatars: avatars})
}

// EncodeUpdateAvatars 编码全量状态广播
func EncodeUpdateAvatars(avatars map[string]Avatar) ([]byte, error) {
	return json.Marshal(UpdateAvatarsMessage{Type: MsgUpdateAvatars, Avatars: avatars})
}

var pingPayload = []byte(`{"type":"ping"}`)
