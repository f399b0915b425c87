package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	vars := []struct {
		name string
		val  any
	}{
		{"EventsHandled", EventsHandled},
		{"HandlerDuration", HandlerDuration},
		{"Registrations", Registrations},
		{"MetadataLookups", MetadataLookups},
		{"MetadataRetries", MetadataRetries},
		{"EventsOutOfOrder", EventsOutOfOrder},
	}

	for _, v := range vars {
		assert.NotNil(t, v.val, v.name)
	}
}

func TestMetrics_CounterLabels(t *testing.T) {
	counter := EventsHandled.WithLabelValues("1", "Swap", "ok")
	before := testutil.ToFloat64(counter)
	counter.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
