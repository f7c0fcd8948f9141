// Package metrics exposes Prometheus counters for route activity.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routeshare"

var (
	RoutesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routes_created_total",
		Help:      "Routes persisted together with their points.",
	})

	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_cast_total",
		Help:      "Votes upserted, by vote type and context.",
	}, []string{"vote_type", "context"})

	TagLinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tag_link_failures_total",
		Help:      "Tag associations that failed and were skipped.",
	})

	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_requests_total",
		Help:      "Route feed listings served, by sort order.",
	}, []string{"sort"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
