package sio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// EngineType is an Engine.IO packet type.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is a Socket.IO packet type carried inside an Engine.IO message.
type PacketType byte

const (
	Connect      PacketType = '0'
	Disconnect   PacketType = '1'
	Event        PacketType = '2'
	Ack          PacketType = '3'
	ConnectError PacketType = '4'
	BinaryEvent  PacketType = '5'
	BinaryAck    PacketType = '6'
)

// Errors
var (
	ErrEmptyFrame        = errors.New("sio: empty frame")
	ErrUnknownPacket     = errors.New("sio: unknown packet type")
	ErrBinaryUnsupported = errors.New("sio: binary packets are not supported")
	ErrMalformedEvent    = errors.New("sio: malformed event payload")
)

// Packet is a decoded frame.
type Packet struct {
	Engine EngineType

	// Fields below are set for EngineMessage frames only.
	Type      PacketType
	Namespace string // "/" when omitted on the wire
	AckID     int64  // -1 when absent
	Event     string // EVENT packets: first array element
	Data      json.RawMessage
}

// OpenPayload is the JSON body of the Engine.IO open packet.
type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"` // milliseconds
	PingTimeout  int64    `json:"pingTimeout"`  // milliseconds
	MaxPayload   int64    `json:"maxPayload"`
}

// HeartbeatWindow is how long the server may stay silent before the link is stale.
func (o OpenPayload) HeartbeatWindow() time.Duration {
	return time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
}

// ConnectErrorPayload is the body of a CONNECT_ERROR packet.
type ConnectErrorPayload struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Pong is the reply to an Engine.IO ping.
var Pong = []byte{byte(EnginePong)}

// EncodeConnect builds a CONNECT packet for the default namespace.
func EncodeConnect(auth any) ([]byte, error) {
	frame := []byte{byte(EngineMessage), byte(Connect)}
	if auth == nil {
		return frame, nil
	}
	body, err := json.Marshal(auth)
	if err != nil {
		return nil, fmt.Errorf("sio: encode connect auth: %w", err)
	}
	return append(frame, body...), nil
}

// EncodeDisconnect builds a DISCONNECT packet for the default namespace.
func EncodeDisconnect() []byte {
	return []byte{byte(EngineMessage), byte(Disconnect)}
}

// EncodeEvent builds an EVENT packet: 42["name",data]. A nil data sends the
// name alone.
func EncodeEvent(name string, data any) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty event name", ErrMalformedEvent)
	}
	args := []any{name}
	if data != nil {
		args = append(args, data)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("sio: encode event %s: %w", name, err)
	}

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, byte(EngineMessage), byte(Event))
	return append(frame, body...), nil
}

// Decode parses one text frame.
func Decode(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, ErrEmptyFrame
	}

	p := Packet{Engine: EngineType(frame[0]), Namespace: "/", AckID: -1}
	rest := frame[1:]

	switch p.Engine {
	case EngineOpen, EngineClose, EnginePing, EnginePong, EngineUpgrade, EngineNoop:
		if len(rest) > 0 {
			p.Data = json.RawMessage(rest)
		}
		return p, nil
	case EngineMessage:
	default:
		return Packet{}, fmt.Errorf("%w: engine %q", ErrUnknownPacket, frame[0])
	}

	if len(rest) == 0 {
		return Packet{}, fmt.Errorf("%w: message without socket packet", ErrUnknownPacket)
	}
	p.Type = PacketType(rest[0])
	rest = rest[1:]

	switch p.Type {
	case Connect, Disconnect, Event, Ack, ConnectError:
	case BinaryEvent, BinaryAck:
		return Packet{}, ErrBinaryUnsupported
	default:
		return Packet{}, fmt.Errorf("%w: socket %q", ErrUnknownPacket, p.Type)
	}

	// Optional namespace: "/chat," prefix.
	if len(rest) > 0 && rest[0] == '/' {
		if i := bytes.IndexByte(rest, ','); i >= 0 {
			p.Namespace = string(rest[:i])
			rest = rest[i+1:]
		} else {
			p.Namespace = string(rest)
			rest = nil
		}
	}

	// Optional ack id: leading digits.
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseInt(string(rest[:digits]), 10, 64)
		if err != nil {
			return Packet{}, fmt.Errorf("sio: ack id: %w", err)
		}
		p.AckID = id
		rest = rest[digits:]
	}

	if len(rest) > 0 {
		p.Data = json.RawMessage(rest)
	}

	if p.Type == Event {
		name, data, err := splitEvent(p.Data)
		if err != nil {
			return Packet{}, err
		}
		p.Event = name
		p.Data = data
	}

	return p, nil
}

// splitEvent turns ["name", arg0, ...] into the name and arg0. Extra
// arguments are ignored; the backend emits a single payload per event.
func splitEvent(body json.RawMessage) (string, json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: empty argument list", ErrMalformedEvent)
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", ErrMalformedEvent, err)
	}
	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// DecodeOpen parses the body of an Engine.IO open packet.
func DecodeOpen(p Packet) (OpenPayload, error) {
	if p.Engine != EngineOpen {
		return OpenPayload{}, fmt.Errorf("sio: expected open packet, got %q", p.Engine)
	}
	var open OpenPayload
	if err := json.Unmarshal(p.Data, &open); err != nil {
		return OpenPayload{}, fmt.Errorf("sio: decode open payload: %w", err)
	}
	return open, nil
}

// EndpointURL turns the backend base URL into the Socket.IO WebSocket endpoint.
// http(s) becomes ws(s); an empty path becomes /socket.io/.
func EndpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("sio: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("sio: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("sio: url %q has no host", base)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	} else if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
