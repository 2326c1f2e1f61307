package state

import "time"

const (
	// INF is the cost of an unknown or unreachable destination.
	INF = ^Cost(0)
	// INFM is the largest finite cost.
	INFM = INF - 1

	// PadChar fills fixed-width fields on the left.
	PadChar = '0'
)

var (
	// DefaultWidths are the field widths used when a topology does not declare its own.
	DefaultWidths = Widths{
		Dest:  5,
		Tag:   1,
		Name:  5,
		Table: 256,
	}

	DefaultLinkCost = Cost(1)

	IdleDelay      = time.Millisecond * 1 // sleep after a sweep that found no frames
	ForwardTimeout = time.Millisecond * 100
	LinkSweepDelay = time.Millisecond * 1
	DropReportTTL  = time.Second * 2
	TraceBuffer    = 1024
)
