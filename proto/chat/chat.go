// Package chat holds the wire types and service bindings of chat.proto.
// The types encode themselves in the protobuf wire format, so any client
// generated from chat.proto talks to the relay unchanged.
package chat

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// IdentityMetadataKey is the metadata key carrying the caller identity.
const IdentityMetadataKey = "from"

const (
	chatMessageTo      protowire.Number = 1
	chatMessageMessage protowire.Number = 2
	pongMessage        protowire.Number = 1
)

// wireMessage is implemented by the chat.proto messages of this package.
type wireMessage interface {
	appendWire(b []byte) []byte
	consumeWire(b []byte) error
}

type ChatMessage struct {
	To      string
	Message string
}

func (m *ChatMessage) GetTo() string {
	if m == nil {
		return ""
	}
	return m.To
}

func (m *ChatMessage) GetMessage() string {
	if m == nil {
		return ""
	}
	return m.Message
}

func (m *ChatMessage) appendWire(b []byte) []byte {
	b = appendString(b, chatMessageTo, m.To)
	return appendString(b, chatMessageMessage, m.Message)
}

func (m *ChatMessage) consumeWire(b []byte) error {
	*m = ChatMessage{}
	return consumeStrings(b, func(num protowire.Number, v string) {
		switch num {
		case chatMessageTo:
			m.To = v
		case chatMessageMessage:
			m.Message = v
		}
	})
}

type Ping struct{}

func (p *Ping) appendWire(b []byte) []byte {
	return b
}

func (p *Ping) consumeWire(b []byte) error {
	return consumeStrings(b, func(protowire.Number, string) {})
}

type Pong struct {
	Message string
}

func (p *Pong) GetMessage() string {
	if p == nil {
		return ""
	}
	return p.Message
}

func (p *Pong) appendWire(b []byte) []byte {
	return appendString(b, pongMessage, p.Message)
}

func (p *Pong) consumeWire(b []byte) error {
	*p = Pong{}
	return consumeStrings(b, func(num protowire.Number, v string) {
		if num == pongMessage {
			p.Message = v
		}
	})
}

// appendString follows proto3: an empty string is not written.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// consumeStrings hands every length-delimited field to set and skips the others.
func consumeStrings(b []byte, set func(num protowire.Number, v string)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			set(num, v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

// codec replaces the default "proto" codec of the process. Chat messages
// use their own wire encoding, any generated proto.Message is passed through.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire([]byte{}), nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("failed to marshal, message is %T, want proto.Message", v)
	}
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		return m.consumeWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("failed to unmarshal, message is %T, want proto.Message", v)
	}
}

func (codec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(codec{})
}
