package core

import (
	"context"
	"fmt"
	"time"

	"github.com/encodeous/dvsim/link"
	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
	"golang.org/x/sync/errgroup"
)

// Node is anything that runs its own loop in a simulation.
type Node interface {
	Name() state.Address
	Run(ctx context.Context) error
}

// Simulation wires the routers, hosts and links of a topology together.
type Simulation struct {
	Topology *state.Topology
	Codec    protocol.Codec
	Routers  []*SimRouter
	Hosts    []*Host
	Layer    *link.Layer
	Sink     Sink
}

// NewSimulation builds every node of an expanded, validated topology.
func NewSimulation(topo *state.Topology, sink Sink) (*Simulation, error) {
	if sink == nil {
		sink = Discard
	}
	w := state.DefaultWidths
	if topo.Widths != nil {
		w = *topo.Widths
	}
	sim := &Simulation{
		Topology: topo,
		Codec:    protocol.NewCodec(w),
		Sink:     sink,
	}

	for _, id := range topo.Routers {
		r, err := NewRouter(id, topo.LinkCosts(id), topo.IsRouter, sim.Codec, topo.QueueSize, sink)
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", id, err)
		}
		sim.Routers = append(sim.Routers, r)
	}
	for _, id := range topo.Hosts {
		links := topo.LinksOf(id)
		if len(links) != 1 {
			return nil, fmt.Errorf("host %s must have exactly one link, has %d", id, len(links))
		}
		sim.Hosts = append(sim.Hosts, NewHost(id, links[0].B, sim.Codec, sink))
	}

	sim.Layer = &link.Layer{
		OnDrop: func(l *link.Link, frame []byte, err error) {
			sink.Emit(Event{
				Time: time.Now(),
				Node: l.SrcNode,
				Kind: DropLink,
				Desc: "frame dropped on link",
				Args: []any{"link", l.String(), "frame", string(frame), "error", err},
			})
		},
	}
	for _, l := range topo.Links {
		a, err := sim.iface(l.A, l.APort)
		if err != nil {
			return nil, err
		}
		b, err := sim.iface(l.B, l.BPort)
		if err != nil {
			return nil, err
		}
		sim.Layer.Links = append(sim.Layer.Links, link.Connect(l.A, a, l.B, b, topo.LinkMtu, topo.Loss)...)
	}
	return sim, nil
}

func (sim *Simulation) iface(node state.Address, port int) (*link.Interface, error) {
	if r := sim.Router(node); r != nil {
		if i := r.Interface(port); i != nil {
			return i, nil
		}
		return nil, fmt.Errorf("router %s has no port %d", node, port)
	}
	if h := sim.Host(node); h != nil && port == 0 {
		return h.Interface(), nil
	}
	return nil, fmt.Errorf("node %s has no port %d", node, port)
}

func (sim *Simulation) Router(id state.Address) *SimRouter {
	for _, r := range sim.Routers {
		if r.Name() == id {
			return r
		}
	}
	return nil
}

func (sim *Simulation) Host(id state.Address) *Host {
	for _, h := range sim.Hosts {
		if h.Name() == id {
			return h
		}
	}
	return nil
}

func (sim *Simulation) Nodes() []Node {
	nodes := make([]Node, 0, len(sim.Routers)+len(sim.Hosts))
	for _, r := range sim.Routers {
		nodes = append(nodes, r)
	}
	for _, h := range sim.Hosts {
		nodes = append(nodes, h)
	}
	return nodes
}

// ScheduleTask runs fun after delay unless ctx is done first.
func ScheduleTask(ctx context.Context, g *errgroup.Group, fun func(), delay time.Duration) {
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			fun()
		}
		return nil
	})
}

// Run starts every node, the link layer and the scripted messages, and blocks until ctx is done
// and all of them have returned.
func (sim *Simulation) Run(ctx context.Context) error {
	for _, msg := range sim.Topology.Messages {
		if sim.Host(msg.From) == nil {
			return fmt.Errorf("message sender %s is not a host", msg.From)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Layer.Run(gctx)
	})
	for _, n := range sim.Nodes() {
		g.Go(func() error {
			return n.Run(gctx)
		})
	}
	for _, msg := range sim.Topology.Messages {
		h := sim.Host(msg.From)
		ScheduleTask(gctx, g, func() {
			h.Send(msg.To, []byte(msg.Data))
		}, time.Duration(msg.DelayMs)*time.Millisecond)
	}
	return g.Wait()
}
