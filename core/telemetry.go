package core

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/jellydator/ttlcache/v3"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	TableChanged
	UpdateReceived
	AdvertisementSent
	PacketSent
	PacketForwarded
	PacketDelivered
	NodeStarted
	NodeStopped
)

// drop events

const (
	DropFormat RouterEvent = iota + 1000
	DropQueueFull
	DropUnreachable
	DropLink
	DropUnknownNeighbour
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "route-improved"
	case TableChanged:
		return "table-changed"
	case UpdateReceived:
		return "update-received"
	case AdvertisementSent:
		return "advertisement-sent"
	case PacketSent:
		return "packet-sent"
	case PacketForwarded:
		return "packet-forwarded"
	case PacketDelivered:
		return "packet-delivered"
	case NodeStarted:
		return "node-started"
	case NodeStopped:
		return "node-stopped"
	case DropFormat:
		return "drop-format"
	case DropQueueFull:
		return "drop-queue-full"
	case DropUnreachable:
		return "drop-unreachable"
	case DropLink:
		return "drop-link"
	case DropUnknownNeighbour:
		return "drop-unknown-neighbour"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

func (e RouterEvent) IsDrop() bool {
	return e >= DropFormat
}

// Event is a telemetry record. Routes, Forwarding and Neighbours are only set on TableChanged and
// are copies owned by the receiver.
type Event struct {
	Time       time.Time
	Node       state.Address
	Kind       RouterEvent
	Desc       string
	Args       []any
	Routes     state.RoutingTable
	Forwarding state.ForwardingTable
	Neighbours []state.Neighbour
}

// Sink receives telemetry from every node goroutine, so implementations must be safe for concurrent use.
// Engine behaviour never depends on a sink.
type Sink interface {
	Emit(ev Event)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard drops every event.
var Discard Sink = discard{}

// Sinks fans an event out to every sink in order.
type Sinks []Sink

func (s Sinks) Emit(ev Event) {
	for _, sink := range s {
		sink.Emit(ev)
	}
}

// LogSink writes events to a slog.Logger. Identical drop reports are suppressed for
// state.DropReportTTL.
type LogSink struct {
	Log        *slog.Logger
	recent     *ttlcache.Cache[string, struct{}]
	Suppressed atomic.Int64 // number of drop reports not written
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{
		Log: log,
		recent: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](state.DropReportTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
	}
}

func (l *LogSink) Emit(ev Event) {
	args := make([]any, 0, len(ev.Args)+4)
	args = append(args, "node", ev.Node, "event", ev.Kind)
	args = append(args, ev.Args...)

	switch {
	case ev.Kind.IsDrop():
		key := fmt.Sprint(ev.Node, ev.Kind, ev.Desc, ev.Args)
		if l.recent.Has(key) {
			l.Suppressed.Add(1)
			return
		}
		l.recent.Set(key, struct{}{}, ttlcache.DefaultTTL)
		l.Log.Warn(ev.Desc, args...)
	case ev.Kind == RouteImproved || ev.Kind == PacketDelivered || ev.Kind == NodeStarted || ev.Kind == NodeStopped:
		l.Log.Info(ev.Desc, args...)
	default:
		l.Log.Debug(ev.Desc, args...)
	}
}

// TraceSink broadcasts events to subscribers. A subscriber must keep draining its channel,
// otherwise it stalls the emitting nodes.
type TraceSink struct {
	broadcast.Broadcaster
}

func NewTraceSink() *TraceSink {
	return &TraceSink{
		Broadcaster: broadcast.NewBroadcaster(state.TraceBuffer),
	}
}

func (t *TraceSink) Emit(ev Event) {
	t.Submit(ev)
}

// Subscribe registers a new subscriber channel with the given buffer size.
func (t *TraceSink) Subscribe(buf int) chan any {
	ch := make(chan any, buf)
	t.Register(ch)
	return ch
}

// MetricSink counts events into the process-wide counters of package perf.
type MetricSink struct{}

func (MetricSink) Emit(ev Event) {
	switch {
	case ev.Kind.IsDrop():
		perf.PacketsDropped.Add(1)
	case ev.Kind == PacketSent:
		perf.PacketsSent.Add(1)
	case ev.Kind == PacketForwarded:
		perf.PacketsForwarded.Add(1)
	case ev.Kind == PacketDelivered:
		perf.PacketsDelivered.Add(1)
	case ev.Kind == UpdateReceived:
		perf.UpdatesApplied.Add(1)
	case ev.Kind == AdvertisementSent:
		perf.AdvertisementsSent.Add(1)
	case ev.Kind == RouteImproved:
		perf.RouteChanges.Add(1)
	}
}
