package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// buildInfo is always 1; the labels carry version and commit.
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "gymadmin build information.",
		},
		[]string{"version", "commit"},
	)
)

// InitBuildInfo registers build_info once and sets build_info{version,commit} 1.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		Registry().MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}
