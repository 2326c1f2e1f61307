package core

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvsim/link"
	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
)

// Host is an end node with a single unbounded interface on port 0.
type Host struct {
	Addr  state.Address
	iface *link.Interface
	codec protocol.Codec
	sink  Sink

	mu       sync.Mutex
	received []protocol.NetworkPacket
}

// NewHost creates a host attached to the node named gateway.
func NewHost(addr, gateway state.Address, codec protocol.Codec, sink Sink) *Host {
	if sink == nil {
		sink = Discard
	}
	return &Host{
		Addr:  addr,
		iface: link.NewInterface(gateway, 0),
		codec: codec,
		sink:  sink,
	}
}

func (h *Host) String() string {
	return string(h.Addr)
}

func (h *Host) Name() state.Address {
	return h.Addr
}

func (h *Host) Interface() *link.Interface {
	return h.iface
}

// Send enqueues one data packet for dst. It never fails from the caller's point of view: the
// interface is unbounded, and a packet that cannot be encoded is reported and dropped.
func (h *Host) Send(dst state.Address, payload []byte) {
	p := protocol.NetworkPacket{Dst: dst, Proto: protocol.Data, Payload: payload}
	frame, err := h.codec.EncodePacket(p)
	if err != nil {
		h.Log(DropFormat, "cannot encode packet", "dst", dst, "error", err)
		return
	}
	err = h.iface.Put(context.Background(), link.Out, frame, false)
	if err != nil {
		h.Log(DropQueueFull, "packet lost", "dst", dst, "error", err)
		return
	}
	h.Log(PacketSent, "sending packet", "packet", p)
}

// Receive drains at most one frame from the interface. It returns false when nothing was pending
// or the frame was malformed.
func (h *Host) Receive() (protocol.NetworkPacket, bool) {
	frame, ok := h.iface.Get(link.In)
	if !ok {
		return protocol.NetworkPacket{}, false
	}
	p, err := h.codec.DecodePacket(frame)
	if err != nil {
		h.Log(DropFormat, "malformed packet dropped", "frame", string(frame), "error", err)
		return protocol.NetworkPacket{}, false
	}
	if p.Proto != protocol.Data || p.Dst != h.Addr {
		h.Log(DropUnreachable, "packet not addressed to host", "packet", p)
		return protocol.NetworkPacket{}, false
	}
	h.mu.Lock()
	h.received = append(h.received, p)
	h.mu.Unlock()
	h.Log(PacketDelivered, "received packet", "payload", string(p.Payload))
	return p, true
}

// Received returns every packet delivered so far.
func (h *Host) Received() []protocol.NetworkPacket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.received)
}

func (h *Host) Run(ctx context.Context) error {
	h.Log(NodeStarted, "host started")
	for ctx.Err() == nil {
		if _, ok := h.Receive(); !ok && h.iface.Len(link.In) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(state.IdleDelay):
			}
		}
	}
	h.Log(NodeStopped, "host stopped", "reason", context.Cause(ctx))
	return nil
}

func (h *Host) Log(event RouterEvent, desc string, args ...any) {
	h.sink.Emit(Event{
		Time: time.Now(),
		Node: h.Addr,
		Kind: event,
		Desc: desc,
		Args: args,
	})
}
