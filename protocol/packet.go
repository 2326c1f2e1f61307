package protocol

import (
	"fmt"
	"strconv"

	"github.com/encodeous/dvsim/state"
)

// Proto is the upper layer protocol carried by a NetworkPacket.
type Proto int

const (
	Data    Proto = 1
	Control Proto = 2
)

func (p Proto) String() string {
	switch p {
	case Data:
		return "data"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("proto(%d)", int(p))
	}
}

func ParseProto(s string) (Proto, error) {
	switch s {
	case "data":
		return Data, nil
	case "control":
		return Control, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// NetworkPacket is a network layer packet. Treat it as immutable once built.
type NetworkPacket struct {
	Dst     state.Address
	Proto   Proto
	Payload []byte
}

func (p NetworkPacket) String() string {
	return fmt.Sprintf("(dst: %s, proto: %s, payload: %q)", p.Dst, p.Proto, p.Payload)
}

// Codec encodes packets and route updates with a fixed set of field widths.
type Codec struct {
	state.Widths
}

func NewCodec(w state.Widths) Codec {
	return Codec{Widths: w}
}

func (c Codec) EncodePacket(p NetworkPacket) ([]byte, error) {
	dst, err := state.PadLeft("destination", string(p.Dst), c.Dest)
	if err != nil {
		return nil, err
	}
	if p.Proto != Data && p.Proto != Control {
		return nil, &state.FormatError{Field: "protocol", Reason: fmt.Sprintf("unknown protocol %d", int(p.Proto))}
	}
	tag, err := state.PadLeft("protocol", strconv.Itoa(int(p.Proto)), c.Tag)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, c.HeaderLen()+len(p.Payload))
	buf = append(buf, dst...)
	buf = append(buf, tag...)
	buf = append(buf, p.Payload...)
	return buf, nil
}

// DecodePacket parses a frame. The payload aliases b.
func (c Codec) DecodePacket(b []byte) (NetworkPacket, error) {
	if len(b) < c.HeaderLen() {
		return NetworkPacket{}, &state.FormatError{
			Field:  "header",
			Reason: fmt.Sprintf("frame is %d bytes, header needs %d", len(b), c.HeaderLen()),
		}
	}
	dst := state.TrimPad(string(b[:c.Dest]))
	tag := string(b[c.Dest:c.HeaderLen()])
	var proto Proto
	switch state.TrimPad(tag) {
	case "1":
		proto = Data
	case "2":
		proto = Control
	default:
		return NetworkPacket{}, &state.FormatError{Field: "protocol", Reason: fmt.Sprintf("unknown tag %q", tag)}
	}
	payload := b[c.HeaderLen():]
	if len(payload) == 0 {
		payload = nil
	}
	return NetworkPacket{
		Dst:     state.Address(dst),
		Proto:   proto,
		Payload: payload,
	}, nil
}
