package core

import (
	"context"
	"testing"
	"time"

	"github.com/encodeous/dvsim/link"
	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testCodec = protocol.NewCodec(state.Widths{Dest: 5, Tag: 1, Name: 5, Table: 64})

func newTestRouter(t *testing.T, capacity int) (*SimRouter, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	r, err := NewRouter("RA", costs("H1", 0, 1, "RB", 1, 2, "RC", 2, 5), isRouterName, testCodec, capacity, sink)
	require.NoError(t, err)
	return r, sink
}

func dataFrame(t *testing.T, dst state.Address, payload string) []byte {
	t.Helper()
	frame, err := testCodec.EncodePacket(protocol.NetworkPacket{Dst: dst, Proto: protocol.Data, Payload: []byte(payload)})
	require.NoError(t, err)
	return frame
}

func updateFrame(t *testing.T, update protocol.RouteUpdate) []byte {
	t.Helper()
	payload, err := testCodec.EncodeUpdate(update)
	require.NoError(t, err)
	frame, err := testCodec.EncodePacket(protocol.NetworkPacket{Proto: protocol.Control, Payload: payload})
	require.NoError(t, err)
	return frame
}

func deliver(t *testing.T, r *SimRouter, port int, frame []byte) {
	t.Helper()
	require.NoError(t, r.Interface(port).Put(context.Background(), link.In, frame, false))
}

func TestRouterForwardsData(t *testing.T) {
	r, sink := newTestRouter(t, 0)
	assert.Equal(t, []int{0, 1, 2}, r.Ports())

	frame := dataFrame(t, "RC", "hi")
	deliver(t, r, 0, frame)
	assert.True(t, r.ProcessQueues())
	assert.False(t, r.ProcessQueues())

	out, ok := r.Interface(2).Get(link.Out)
	require.True(t, ok)
	assert.Equal(t, frame, out)
	assert.Zero(t, r.Interface(1).Len(link.Out))
	assert.Equal(t, 1, sink.Count(PacketForwarded))
}

func TestRouterDropsUnroutable(t *testing.T) {
	r, sink := newTestRouter(t, 0)

	deliver(t, r, 0, dataFrame(t, "H9", "hi"))
	r.ProcessQueues()

	assert.Equal(t, 1, sink.Count(DropUnreachable))
	for _, port := range r.Ports() {
		assert.Zero(t, r.Interface(port).Len(link.Out))
	}
}

func TestRouterIgnoresUpdatesFromHosts(t *testing.T) {
	r, sink := newTestRouter(t, 0)

	deliver(t, r, 0, updateFrame(t, protocol.RouteUpdate{Origin: "H1", Table: table("RD", 1)}))
	r.ProcessQueues()

	assert.Equal(t, 1, sink.Count(DropUnknownNeighbour))
	assert.Zero(t, sink.Count(TableChanged))
	_, err := Lookup(r.State(), "RD")
	assert.ErrorIs(t, err, state.ErrUnreachable)
}

func TestRouterDropsMalformed(t *testing.T) {
	r, sink := newTestRouter(t, 0)

	deliver(t, r, 1, []byte("x"))
	deliver(t, r, 1, dataFrame(t, "H1", "after"))
	deliver(t, r, 2, []byte("000002{bad"))
	r.ProcessQueues()
	r.ProcessQueues()

	assert.Equal(t, 2, sink.Count(DropFormat))
	// the router keeps going after bad frames
	out, ok := r.Interface(0).Get(link.Out)
	require.True(t, ok)
	assert.Equal(t, dataFrame(t, "H1", "after"), out)
}

func TestRouterAppliesUpdates(t *testing.T) {
	r, sink := newTestRouter(t, 0)

	deliver(t, r, 1, updateFrame(t, protocol.RouteUpdate{
		Origin: "RB",
		Table:  table("RB", 0, "RC", 1, "H2", 1),
	}))
	r.ProcessQueues()

	s := r.State()
	assert.Equal(t, 1, s.Forwarding["RC"])
	assert.Equal(t, state.Cost(3), s.Cost("RC"))
	assert.Equal(t, 1, s.Forwarding["H2"])
	assert.Equal(t, state.Cost(3), s.Cost("H2"))
	assert.Equal(t, 1, sink.Count(UpdateReceived))
	assert.Equal(t, 1, sink.Count(TableChanged))

	// the new vector goes to both routers but not to the host
	assert.Zero(t, r.Interface(0).Len(link.Out))
	for _, port := range []int{1, 2} {
		frame, ok := r.Interface(port).Get(link.Out)
		require.True(t, ok)
		p, err := testCodec.DecodePacket(frame)
		require.NoError(t, err)
		assert.Equal(t, protocol.Control, p.Proto)
		update, err := testCodec.DecodeUpdate(p.Payload)
		require.NoError(t, err)
		assert.Equal(t, state.Address("RA"), update.Origin)
		assert.Equal(t, table("RA", 0, "H1", 1, "RB", 2, "RC", 3, "H2", 3), update.Table)
	}

	// the event carries a private copy of the tables
	for _, ev := range sink.Events() {
		if ev.Kind == TableChanged {
			v, ok := ViewOfEvent(ev)
			require.True(t, ok)
			assert.Equal(t, s.Routes, v.Routes)
			v.Routes["RC"]["RA"] = 100
			assert.Equal(t, state.Cost(3), s.Cost("RC"))
		}
	}
}

func TestRouterQueueFull(t *testing.T) {
	old := state.ForwardTimeout
	t.Cleanup(func() {
		state.ForwardTimeout = old
	})

	for _, timeout := range []time.Duration{0, 5 * time.Millisecond} {
		state.ForwardTimeout = timeout
		r, sink := newTestRouter(t, 1)
		require.NoError(t, r.Interface(2).Put(context.Background(), link.Out, []byte("busy"), false))

		deliver(t, r, 0, dataFrame(t, "RC", "hi"))
		r.ProcessQueues()

		assert.Equal(t, 1, sink.Count(DropQueueFull), "timeout %s", timeout)
		assert.Equal(t, 1, r.Interface(2).Len(link.Out))
	}
}

func TestRouterRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, sink := newTestRouter(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- r.Run(ctx)
	}()

	// initial advertisement
	require.Eventually(t, func() bool {
		return r.Interface(1).Len(link.Out) == 1 && r.Interface(2).Len(link.Out) == 1
	}, time.Second, time.Millisecond)
	assert.Zero(t, r.Interface(0).Len(link.Out))

	deliver(t, r, 0, dataFrame(t, "RB", "hi"))
	require.Eventually(t, func() bool {
		return r.Interface(1).Len(link.Out) == 2
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, sink.Count(NodeStarted))
	assert.Equal(t, 1, sink.Count(NodeStopped))
}

func TestRouterLosesAdvertisementOnFullQueue(t *testing.T) {
	old := state.ForwardTimeout
	t.Cleanup(func() {
		state.ForwardTimeout = old
	})
	state.ForwardTimeout = time.Millisecond

	r, sink := newTestRouter(t, 1)
	require.NoError(t, r.Interface(2).Put(context.Background(), link.Out, []byte("busy"), false))

	deliver(t, r, 1, updateFrame(t, protocol.RouteUpdate{
		Origin: "RB",
		Table:  table("RB", 0, "RC", 1),
	}))
	r.ProcessQueues()

	// the table change stands even though one copy of the advertisement was lost
	assert.Equal(t, state.Cost(3), r.State().Cost("RC"))
	assert.Equal(t, 1, sink.Count(DropQueueFull))
	assert.Equal(t, 1, sink.Count(AdvertisementSent))
	assert.Equal(t, 1, r.Interface(1).Len(link.Out))
}
