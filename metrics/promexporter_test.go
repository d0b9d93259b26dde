package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromProvider_Counter_ReusedAndAccumulates(t *testing.T) {
	p := NewPromProvider()

	c1 := p.Counter("requests_total")
	c2 := p.Counter("requests_total")
	c1.Add(3)
	c2.Add(2)

	got := testutil.ToFloat64(p.counters["requests_total"])
	if got != 5 {
		t.Fatalf("counter value = %v; want 5", got)
	}
}

func TestPromProvider_UpDownCounter_Moves(t *testing.T) {
	p := NewPromProvider()
	u := p.UpDownCounter("inflight")
	u.Add(3)
	u.Add(-1)

	got := testutil.ToFloat64(p.updowns["inflight"])
	if got != 2 {
		t.Fatalf("updown value = %v; want 2", got)
	}
}

func TestPromProvider_Histogram_Records(t *testing.T) {
	p := NewPromProvider()
	h := p.Histogram("exec_seconds")
	h.Record(0.1)
	h.Record(0.2)

	if got := testutil.CollectAndCount(p.histograms["exec_seconds"]); got != 1 {
		t.Fatalf("histogram vec series count = %d; want 1", got)
	}
}

func TestPromProvider_AttributesProduceDistinctSeries(t *testing.T) {
	p := NewPromProvider()
	a := p.Counter("by_key", WithAttributes(map[string]string{"key": "a"}))
	b := p.Counter("by_key", WithAttributes(map[string]string{"key": "b"}))
	a.Add(1)
	b.Add(1)
	b.Add(1)

	if got := testutil.CollectAndCount(p.counters["by_key"]); got != 2 {
		t.Fatalf("counter vec series count = %d; want 2", got)
	}
}

func TestPromProvider_RegistryExposesRegisteredInstruments(t *testing.T) {
	p := NewPromProvider()
	p.Counter("a").Add(1)
	p.UpDownCounter("b").Add(1)
	p.Histogram("c").Record(1)

	mfs, err := p.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 3 {
		t.Fatalf("gathered %d metric families; want 3", len(mfs))
	}
}
