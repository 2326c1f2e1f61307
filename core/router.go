package core

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/dvsim/link"
	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
)

// SimRouter is a router node. Its routing state is only touched from the goroutine running Run
// (or, when it is not running, from the caller driving ProcessQueues).
type SimRouter struct {
	state  *state.RouterState
	codec  protocol.Codec
	ifaces map[int]*link.Interface
	ports  []int
	sink   Sink
}

// NewRouter creates a router with one interface per neighbour in costs. Interface queues hold at
// most capacity frames, 0 is unbounded.
func NewRouter(id state.Address, costs state.LinkCosts, isRouter func(state.Address) bool, codec protocol.Codec, capacity int, sink Sink) (*SimRouter, error) {
	s, err := NewRouterState(id, costs, isRouter)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = Discard
	}
	r := &SimRouter{
		state:  s,
		codec:  codec,
		ifaces: make(map[int]*link.Interface),
		sink:   sink,
	}
	for neigh, l := range s.Links {
		r.ifaces[l.Port] = link.NewInterface(neigh, capacity)
	}
	r.ports = slices.Sorted(maps.Keys(r.ifaces))
	return r, nil
}

func (r *SimRouter) Name() state.Address {
	return r.state.Id
}

func (r *SimRouter) String() string {
	return string(r.state.Id)
}

func (r *SimRouter) Interface(port int) *link.Interface {
	return r.ifaces[port]
}

func (r *SimRouter) Ports() []int {
	return slices.Clone(r.ports)
}

// State exposes the routing state. It must not be used while Run is active.
func (r *SimRouter) State() *state.RouterState {
	return r.state
}

// Run announces the router to its neighbours and processes its queues until ctx is done.
// Cancellation is checked once per sweep over the interfaces.
func (r *SimRouter) Run(ctx context.Context) error {
	r.Log(NodeStarted, "router started", "ports", len(r.ports), "neighbours", len(r.state.Neighbours))
	Advertise(r.state, r)
	for ctx.Err() == nil {
		if !r.ProcessQueues() {
			select {
			case <-ctx.Done():
			case <-time.After(state.IdleDelay):
			}
		}
	}
	r.Log(NodeStopped, "router stopped", "reason", context.Cause(ctx))
	return nil
}

// ProcessQueues takes at most one frame from every inbound queue and handles it.
// It reports whether any frame was found.
func (r *SimRouter) ProcessQueues() bool {
	busy := false
	for _, port := range r.ports {
		frame, ok := r.ifaces[port].Get(link.In)
		if !ok {
			continue
		}
		busy = true
		r.handleFrame(frame, port)
	}
	return busy
}

func (r *SimRouter) handleFrame(frame []byte, port int) {
	p, err := r.codec.DecodePacket(frame)
	if err != nil {
		r.Log(DropFormat, "malformed packet dropped", "port", port, "frame", string(frame), "error", err)
		return
	}
	switch p.Proto {
	case protocol.Data:
		r.Forward(p, port)
	case protocol.Control:
		update, err := r.codec.DecodeUpdate(p.Payload)
		if err != nil {
			r.Log(DropFormat, "malformed route update dropped", "port", port, "frame", string(frame), "error", err)
			return
		}
		from := r.ifaces[port].Name
		r.Log(UpdateReceived, "received route update", "port", port, "from", from, "update", update)
		ApplyUpdate(r.state, r, update, from)
	}
}

// Forward sends a data packet out of the interface chosen by the forwarding table. Packets without
// a route, or whose outgoing queue stays full, are dropped and reported.
func (r *SimRouter) Forward(p protocol.NetworkPacket, inPort int) {
	outPort, err := Lookup(r.state, p.Dst)
	if err != nil {
		r.Log(DropUnreachable, "no route, packet dropped", "dst", p.Dst, "in", inPort, "packet", p)
		return
	}
	frame, err := r.codec.EncodePacket(p)
	if err != nil {
		r.Log(DropFormat, "cannot encode packet", "dst", p.Dst, "in", inPort, "error", err)
		return
	}
	err = r.transmit(outPort, frame)
	if err != nil {
		r.Log(DropQueueFull, "packet lost", "dst", p.Dst, "in", inPort, "out", outPort, "error", err)
		return
	}
	r.Log(PacketForwarded, "forwarded packet", "dst", p.Dst, "in", inPort, "out", outPort)
}

func (r *SimRouter) SendRouteUpdate(port int, update protocol.RouteUpdate) {
	payload, err := r.codec.EncodeUpdate(update)
	if err != nil {
		r.Log(DropFormat, "cannot encode route update", "port", port, "error", err)
		return
	}
	frame, err := r.codec.EncodePacket(protocol.NetworkPacket{
		Proto:   protocol.Control,
		Payload: payload,
	})
	if err != nil {
		r.Log(DropFormat, "cannot encode route update", "port", port, "error", err)
		return
	}
	err = r.transmit(port, frame)
	if err != nil {
		r.Log(DropQueueFull, "route update lost", "port", port, "error", err)
		return
	}
	r.Log(AdvertisementSent, "sent route update", "port", port, "update", update)
}

// transmit puts a frame on an outbound queue, waiting at most state.ForwardTimeout for space.
// The wait is not cut short by the router stopping.
func (r *SimRouter) transmit(port int, frame []byte) error {
	iface := r.ifaces[port]
	if state.ForwardTimeout <= 0 {
		return iface.Put(context.Background(), link.Out, frame, false)
	}
	ctx, cancel := context.WithTimeout(context.Background(), state.ForwardTimeout)
	defer cancel()
	return iface.Put(ctx, link.Out, frame, true)
}

func (r *SimRouter) Log(event RouterEvent, desc string, args ...any) {
	ev := Event{
		Time: time.Now(),
		Node: r.state.Id,
		Kind: event,
		Desc: desc,
		Args: args,
	}
	if event == TableChanged {
		ev.Routes = r.state.Routes.Clone()
		ev.Forwarding = maps.Clone(r.state.Forwarding)
		ev.Neighbours = slices.Clone(r.state.Neighbours)
	}
	r.sink.Emit(ev)
}
