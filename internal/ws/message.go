package ws

import "encoding/json"

// Client -> Server message types
const (
	MsgPlayerInput uint8 = 0x01
	MsgPing        uint8 = 0x04
)

// Server -> Client message types
const (
	MsgSessionState uint8 = 0x81
	MsgSessionStart uint8 = 0x82
	MsgScored       uint8 = 0x84
	MsgShot         uint8 = 0x85
	MsgPong         uint8 = 0x86
)

type Message struct {
	Type    uint8           `json:"type"`
	Tick    uint32          `json:"tick"`
	Payload json.RawMessage `json:"payload"`
}

type PingPayload struct {
	ClientTime uint64 `json:"clientTime"`
}

type PongPayload struct {
	ClientTime uint64 `json:"clientTime"`
	ServerTime uint64 `json:"serverTime"`
}

type SessionStartPayload struct {
	SessionID string `json:"sessionId"`
	TickRate  int    `json:"tickRate"`
}

type ScoredPayload struct {
	Points int `json:"points"`
	Score  int `json:"score"`
}

type ShotPayload struct {
	Charge   float32    `json:"charge"`
	Scale    float32    `json:"scale"`
	Velocity [3]float32 `json:"velocity"`
}

func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}

func NewMessage(typ uint8, tick uint32, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:    typ,
		Tick:    tick,
		Payload: json.RawMessage(data),
	}, nil
}
