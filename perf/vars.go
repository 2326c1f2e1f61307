package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	PacketsSent        = metric.NewCounter("10s1s")
	PacketsForwarded   = metric.NewCounter("10s1s")
	PacketsDelivered   = metric.NewCounter("10s1s")
	PacketsDropped     = metric.NewCounter("10s1s")
	UpdatesApplied     = metric.NewCounter("10s1s")
	AdvertisementsSent = metric.NewCounter("10s1s")
	RouteChanges       = metric.NewCounter("1m1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvsim:PacketsSent/s", PacketsSent)
	expvar.Publish("dvsim:PacketsForwarded/s", PacketsForwarded)
	expvar.Publish("dvsim:PacketsDelivered/s", PacketsDelivered)
	expvar.Publish("dvsim:PacketsDropped/s", PacketsDropped)
	expvar.Publish("dvsim:UpdatesApplied/s", UpdatesApplied)
	expvar.Publish("dvsim:AdvertisementsSent/s", AdvertisementsSent)
	expvar.Publish("dvsim:RouteChanges", RouteChanges)
}
