package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecorderExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.ObserveAdapter("abc", 250*time.Millisecond, false)
	rec.ObserveAdapter("ainslie", time.Second, true)
	rec.ObserveReject("abc", "missing_weight")
	rec.ObserveReject("abc", "missing_weight")
	rec.ObserveDefault("perth_mint", "type")
	rec.SetProducts("abc", 42)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := metricValue(mfs, "bulliondeals_adapter_success_total", map[string]string{"dealer": "abc"})
	require.NoError(t, err)
	require.InDelta(t, 1, got, 0)

	got, err = metricValue(mfs, "bulliondeals_adapter_failure_total", map[string]string{"dealer": "ainslie"})
	require.NoError(t, err)
	require.InDelta(t, 1, got, 0)

	got, err = metricValue(mfs, "bulliondeals_candidates_rejected_total", map[string]string{"dealer": "abc", "reason": "missing_weight"})
	require.NoError(t, err)
	require.InDelta(t, 2, got, 0)

	got, err = metricValue(mfs, "bulliondeals_classification_defaults_total", map[string]string{"dealer": "perth_mint", "kind": "type"})
	require.NoError(t, err)
	require.InDelta(t, 1, got, 0)

	got, err = metricValue(mfs, "bulliondeals_catalog_products", map[string]string{"dealer": "abc"})
	require.NoError(t, err)
	require.InDelta(t, 42, got, 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder

	require.NotPanics(t, func() {
		rec.ObserveAdapter("abc", time.Second, false)
		rec.ObserveReject("abc", "x")
		rec.ObserveDefault("abc", "metal")
		rec.SetProducts("abc", 1)
	})

	require.NotPanics(t, func() {
		NewRecorder(nil).ObserveReject("", "")
	})
}

func metricValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			if !labelsMatch(m.GetLabel(), labels) {
				continue
			}

			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), nil
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), nil
			}
		}
	}

	return 0, fmt.Errorf("metric %q %v not found", name, labels)
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0

	for _, lp := range pairs {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}

			matched++
		}
	}

	return matched == len(want)
}
