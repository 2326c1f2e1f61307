package link

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/encodeous/dvsim/state"
)

var (
	ErrMtuExceeded = errors.New("frame exceeds link mtu")
	ErrLost        = errors.New("frame lost on link")
)

// Link carries frames one way, from the outbound queue of Src to the inbound queue of Dst.
type Link struct {
	SrcNode state.Address
	Src     *Interface
	DstNode state.Address
	Dst     *Interface
	Mtu     int     // 0 is unlimited
	Loss    float64 // drop probability
}

func (l *Link) String() string {
	return fmt.Sprintf("%s -> %s", l.SrcNode, l.DstNode)
}

// Transfer moves at most one frame across the link. It reports whether a frame was taken from
// the source; a non-nil error means that frame was dropped.
func (l *Link) Transfer(ctx context.Context, roll func() float64) (bool, []byte, error) {
	frame, ok := l.Src.Get(Out)
	if !ok {
		return false, nil, nil
	}
	if l.Mtu != 0 && len(frame) > l.Mtu {
		return true, frame, fmt.Errorf("%s: %d > %d: %w", l, len(frame), l.Mtu, ErrMtuExceeded)
	}
	if l.Loss > 0 && roll() < l.Loss {
		return true, frame, fmt.Errorf("%s: %w", l, ErrLost)
	}
	err := l.Dst.Put(ctx, In, frame, false)
	if err != nil {
		return true, frame, fmt.Errorf("%s: %w", l, err)
	}
	return true, frame, nil
}

// Layer pumps frames across a set of links.
type Layer struct {
	Links []*Link
	// OnDrop is called from the layer goroutine for every dropped frame.
	OnDrop func(l *Link, frame []byte, err error)
	// Rand returns a number in [0, 1) used for loss decisions. Defaults to math/rand.
	Rand func() float64
}

func (ly *Layer) roll() float64 {
	if ly.Rand != nil {
		return ly.Rand()
	}
	return rand.Float64()
}

// Sweep transfers at most one frame per link and reports whether any frame was taken.
func (ly *Layer) Sweep(ctx context.Context) bool {
	busy := false
	for _, l := range ly.Links {
		moved, frame, err := l.Transfer(ctx, ly.roll)
		busy = busy || moved
		if err != nil && ly.OnDrop != nil {
			ly.OnDrop(l, frame, err)
		}
	}
	return busy
}

// Run sweeps the links until ctx is done.
func (ly *Layer) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if !ly.Sweep(ctx) {
			select {
			case <-ctx.Done():
			case <-time.After(state.LinkSweepDelay):
			}
		}
	}
	return nil
}

// Connect creates the two links of a bidirectional connection between interfaces a and b.
func Connect(aNode state.Address, a *Interface, bNode state.Address, b *Interface, mtu int, loss float64) []*Link {
	return []*Link{
		{SrcNode: aNode, Src: a, DstNode: bNode, Dst: b, Mtu: mtu, Loss: loss},
		{SrcNode: bNode, Src: b, DstNode: aNode, Dst: a, Mtu: mtu, Loss: loss},
	}
}
