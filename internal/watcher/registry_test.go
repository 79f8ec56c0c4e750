package watcher

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

type panickingListener struct{}

func (*panickingListener) OnScan(context.Context, domain.ScanNotification) error {
	panic("listener exploded")
}

func TestRegistry_AddIdempotent(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	l := &recordingListener{}

	reg.Add("ktlx", l)
	reg.Add("KTLX", l)
	assert.Equal(t, 1, reg.Count("KTLX"))
	assert.Len(t, reg.Listeners("KTLX"), 1)
}

type sliceListener struct{ seen []domain.ScanNotification }

func (l sliceListener) OnScan(context.Context, domain.ScanNotification) error { return nil }

func TestRegistry_RejectsNonComparableListener(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	ok := &recordingListener{}
	reg.Add(domain.Wildcard, ok)

	assert.NotPanics(t, func() {
		reg.Add("KTLX", sliceListener{})
		reg.Add(domain.Wildcard, sliceListener{})
		reg.Add("KTLX", nil)
		reg.Remove("KTLX", sliceListener{})
		reg.Notify(context.Background(), domain.ScanNotification{Station: "KTLX"})
	})
	assert.Zero(t, reg.Count("KTLX"))
	assert.Equal(t, []Listener{ok}, reg.Listeners("KTLX"))
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	a, b := &recordingListener{}, &recordingListener{}

	reg.Remove("KTLX", a)
	reg.Add("KTLX", a)
	reg.Remove("KTLX", b)
	assert.Equal(t, []Listener{a}, reg.Listeners("KTLX"))

	reg.Remove("ktlx", a)
	assert.Empty(t, reg.Listeners("KTLX"))
	assert.Zero(t, reg.Count("KTLX"))
}

func TestRegistry_StationThenWildcard(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	station, wild, both := &recordingListener{}, &recordingListener{}, &recordingListener{}

	reg.Add(domain.Wildcard, wild)
	reg.Add(domain.Wildcard, both)
	reg.Add("KTLX", station)
	reg.Add("KTLX", both)

	assert.Equal(t, []Listener{station, both, wild}, reg.Listeners("ktlx"))
	assert.Equal(t, []Listener{wild, both}, reg.Listeners("KFWS"))
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	a, b := &recordingListener{}, &recordingListener{}
	reg.Add("KTLX", a)

	snap := reg.Listeners("KTLX")
	reg.Add("KTLX", b)
	assert.Len(t, snap, 1)
}

func TestRegistry_NotifyIsolatesFailures(t *testing.T) {
	m := observability.NewMetricsForTesting()
	reg := NewRegistry(discardLogger(), m)
	failing := &recordingListener{err: errors.New("socket closed")}
	ok := &recordingListener{}

	reg.Add("KTLX", failing)
	reg.Add("KTLX", &panickingListener{})
	reg.Add(domain.Wildcard, ok)

	n := domain.NewScanNotification("KTLX", testTime(200))
	reg.Notify(context.Background(), n)

	assert.Equal(t, []domain.ScanNotification{n}, failing.notifications())
	assert.Equal(t, []domain.ScanNotification{n}, ok.notifications())
	assert.InDelta(t, 2, testutil.ToFloat64(m.NotificationErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsSent), 0)
}

func TestListenerFunc(t *testing.T) {
	reg := NewRegistry(discardLogger(), observability.NewMetricsForTesting())
	var got []int64
	fn := ListenerFunc(func(_ context.Context, n domain.ScanNotification) error {
		got = append(got, n.Timestamp)
		return nil
	})
	reg.Add("KTLX", &fn)
	reg.Add("KTLX", &fn)

	reg.Notify(context.Background(), domain.NewScanNotification("KTLX", testTime(5)))
	assert.Equal(t, []int64{5}, got)
}
