package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(c prometheus.Collector) []string {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	out := make([]string, 0, 16)
	for d := range ch {
		out = append(out, d.String())
	}
	return out
}

func TestPoolStatsCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = NewPoolStatsCollector(nil, "authcore")
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	// Collect panics with a nil pool, but Describe only needs the
	// descriptor table.
	c := NewPoolStatsCollector(nil, "authcore")
	require.NotNil(t, c)
	assert.Equal(t, "authcore", c.service)

	descs := describeAll(c)
	assert.Len(t, descs, 12)
}

func TestPoolStatsCollector_DescriptorNames(t *testing.T) {
	descs := describeAll(NewPoolStatsCollector(nil, "authcore"))
	joined := strings.Join(descs, "\n")

	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_constructing_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_canceled_acquire_count_total",
		"db_pool_empty_acquire_count_total",
		"db_pool_new_connections_total",
		"db_pool_max_lifetime_destroy_total",
		"db_pool_max_idle_destroy_total",
	} {
		assert.Contains(t, joined, name)
	}
}
