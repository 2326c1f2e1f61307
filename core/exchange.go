package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
)

// Delivery is a route update in flight between two routers.
type Delivery struct {
	From   state.Address
	To     state.Address
	Frame  []byte
	Update protocol.RouteUpdate
}

// Exchange runs the routing engine of many routers on one goroutine, delivering route updates in
// FIFO order through the wire codec. It is used to compute converged tables without a live simulation.
type Exchange struct {
	Codec  protocol.Codec
	States map[state.Address]*state.RouterState
	Sink   Sink
	// Drop, if set, decides whether a delivery is lost.
	Drop func(d Delivery) bool

	pending   []Delivery
	Delivered int
	// Unsent counts route updates that could not be encoded, encodeErr holds the first failure.
	Unsent    int
	encodeErr error
}

type exchangeRouter struct {
	x *Exchange
	s *state.RouterState
}

func (e exchangeRouter) SendRouteUpdate(port int, update protocol.RouteUpdate) {
	idx := slices.IndexFunc(e.s.Neighbours, func(n state.Neighbour) bool {
		return n.Port == port
	})
	if idx == -1 {
		e.Log(DropUnknownNeighbour, "no neighbour on port", "port", port)
		return
	}
	payload, err := e.x.Codec.EncodeUpdate(update)
	if err != nil {
		e.x.Unsent++
		if e.x.encodeErr == nil {
			e.x.encodeErr = fmt.Errorf("%s cannot advertise on port %d: %w", e.s.Id, port, err)
		}
		e.Log(DropFormat, "cannot encode route update", "port", port, "error", err)
		return
	}
	e.x.pending = append(e.x.pending, Delivery{
		From:   e.s.Id,
		To:     e.s.Neighbours[idx].Name,
		Frame:  payload,
		Update: update,
	})
	e.Log(AdvertisementSent, "sent route update", "port", port, "update", update)
}

func (e exchangeRouter) Log(event RouterEvent, desc string, args ...any) {
	if e.x.Sink == nil {
		return
	}
	ev := Event{Node: e.s.Id, Kind: event, Desc: desc, Args: args}
	if event == TableChanged {
		ev.Routes = e.s.Routes.Clone()
		ev.Forwarding = maps.Clone(e.s.Forwarding)
		ev.Neighbours = slices.Clone(e.s.Neighbours)
	}
	e.x.Sink.Emit(ev)
}

// NewExchange builds the router states of every router in a topology.
func NewExchange(topo *state.Topology) (*Exchange, error) {
	w := state.DefaultWidths
	if topo.Widths != nil {
		w = *topo.Widths
	}
	x := &Exchange{
		Codec:  protocol.NewCodec(w),
		States: make(map[state.Address]*state.RouterState),
	}
	for _, id := range topo.Routers {
		s, err := NewRouterState(id, topo.LinkCosts(id), topo.IsRouter)
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", id, err)
		}
		x.States[id] = s
	}
	return x, nil
}

// Advertise queues the initial advertisement of every router.
func (x *Exchange) Advertise() {
	for _, id := range slices.Sorted(maps.Keys(x.States)) {
		s := x.States[id]
		Advertise(s, exchangeRouter{x, s})
	}
}

// Step delivers the oldest pending update. It returns false when nothing is pending.
func (x *Exchange) Step() bool {
	if len(x.pending) == 0 {
		return false
	}
	d := x.pending[0]
	x.pending = x.pending[1:]
	if x.Drop != nil && x.Drop(d) {
		return true
	}
	s, ok := x.States[d.To]
	if !ok {
		return true
	}
	r := exchangeRouter{x, s}
	update, err := x.Codec.DecodeUpdate(d.Frame)
	if err != nil {
		r.Log(DropFormat, "malformed route update dropped", "from", d.From, "error", err)
		return true
	}
	x.Delivered++
	ApplyUpdate(s, r, update, d.From)
	return true
}

// Converge advertises every router and delivers updates until none are pending. It fails if the
// exchange has not settled after maxSteps deliveries.
func (x *Exchange) Converge(maxSteps int) error {
	x.Advertise()
	return x.Drain(maxSteps)
}

// Drain delivers pending updates until none remain. The resulting tables are not converged if any
// update could not be encoded, so that is reported as an error too.
func (x *Exchange) Drain(maxSteps int) error {
	for steps := 0; x.Step(); steps++ {
		if steps >= maxSteps {
			return fmt.Errorf("routing did not converge after %d deliveries", maxSteps)
		}
	}
	if x.Unsent > 0 {
		return fmt.Errorf("%d route updates were never sent: %w", x.Unsent, x.encodeErr)
	}
	return nil
}

func (x *Exchange) Pending() int {
	return len(x.pending)
}
