package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushToGateway pushes all registered metrics to a Pushgateway. A batch job
// has no scrape surface, so this runs once at the end of a run; the caller
// treats failure as non-fatal.
func PushToGateway(gatewayURL, jobName string) error {
	if gatewayURL == "" {
		return nil
	}
	return push.New(gatewayURL, jobName).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
