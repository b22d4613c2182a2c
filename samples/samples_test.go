package samples

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtrace/common"
	"streamtrace/tracelog"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeSample(t *testing.T, layout common.Layout, rate common.RateCondition, media bool, name, body string) {
	t.Helper()
	dir := layout.SampleDir(rate, common.TCP, media, "5s")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func newTestLoader(t *testing.T, maxFiles int, rates ...common.RateCondition) (*Loader, common.Layout, *prometheus.Registry) {
	layout := common.Layout{Root: t.TempDir(), Server: "svc"}
	reg := prometheus.NewRegistry()
	l := NewLoader(LoaderConfig{Layout: layout, Rates: rates, MaxFiles: maxFiles, Workers: 2}, quiet, reg)
	return l, layout, reg
}

func TestLoadOrderAndLimit(t *testing.T) {
	l, layout, reg := newTestLoader(t, 2, "1500")
	writeSample(t, layout, "1500", true, "b.txt", "ts s_tcp_bytes\n2000 20\n")
	writeSample(t, layout, "1500", true, "a.txt", "ts s_tcp_bytes\n1000 10\n1001 11\n")
	writeSample(t, layout, "1500", true, "c.txt", "ts s_tcp_bytes\n3000 30\n")

	rs, err := l.Load("1500", common.TCP, true, "5s")
	require.NoError(t, err)
	require.Len(t, rs.Files, 2)
	assert.Equal(t, "a.txt", filepath.Base(rs.Files[0]))
	assert.Equal(t, "b.txt", filepath.Base(rs.Files[1]))

	bytes, err := rs.Samples.Floats("s_tcp_bytes")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 20}, bytes)

	assert.Equal(t, 2.0, testutil.ToFloat64(l.metrics.filesLoaded.WithLabelValues("tcp", "media")))
	n, err := testutil.GatherAndCount(reg, "streamtrace_samples_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadKeepsListingOrder(t *testing.T) {
	layout := common.Layout{Root: t.TempDir(), Server: "svc"}
	l := NewLoader(LoaderConfig{Layout: layout, Rates: []common.RateCondition{"1500"}, Workers: 8}, quiet, nil)

	//the first file takes longest to parse
	var big strings.Builder
	big.WriteString("ts s_tcp_bytes\n")
	for i := 0; i < 50000; i++ {
		fmt.Fprintf(&big, "%d 1\n", 1000+i)
	}
	writeSample(t, layout, "1500", true, "a.txt", big.String())
	for i := 2; i <= 6; i++ {
		writeSample(t, layout, "1500", true, fmt.Sprintf("f%d.txt", i), fmt.Sprintf("ts s_tcp_bytes\n%d %d\n", i, i))
	}

	rs, err := l.Load("1500", common.TCP, true, "5s")
	require.NoError(t, err)
	require.Len(t, rs.Files, 6)
	bytes, err := rs.Samples.Floats("s_tcp_bytes")
	require.NoError(t, err)
	require.Len(t, bytes, 50005)
	assert.Equal(t, 1.0, bytes[0])
	assert.Equal(t, 1.0, bytes[49999])
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, bytes[50000:])
}

func TestLoadUnavailable(t *testing.T) {
	l, layout, _ := newTestLoader(t, 10, "1500")

	_, err := l.Load("1500", common.TCP, true, "5s")
	assert.True(t, errors.Is(err, tracelog.ErrDataUnavailable))

	require.NoError(t, os.MkdirAll(layout.SampleDir("1500", common.TCP, true, "5s"), 0o755))
	_, err = l.Load("1500", common.TCP, true, "5s")
	assert.True(t, errors.Is(err, tracelog.ErrDataUnavailable))
}

func TestLoadMalformed(t *testing.T) {
	l, layout, _ := newTestLoader(t, 10, "1500")
	writeSample(t, layout, "1500", false, "a.txt", "ts s_tcp_bytes\n1000 10\n")
	writeSample(t, layout, "1500", false, "b.txt", "ts s_tcp_bytes\n1000\n")

	_, err := l.Load("1500", common.TCP, false, "5s")
	require.Error(t, err)
	var me *tracelog.MalformedRecordError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "b.txt", filepath.Base(me.Path))
	assert.Equal(t, 2, me.Line)
}

func TestLoadRatesSkipsEmptyRate(t *testing.T) {
	l, layout, _ := newTestLoader(t, 10, "1500", "3000", common.Unlimited)
	writeSample(t, layout, "1500", true, "a.txt", "ts s_tcp_bytes\n1000 10\n")
	require.NoError(t, os.MkdirAll(layout.SampleDir("3000", common.TCP, true, "5s"), 0o755))
	writeSample(t, layout, common.Unlimited, true, "a.txt", "ts s_tcp_bytes\n1000 99\n")

	rs, err := l.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, common.RateCondition("1500"), rs[0].Rate)
	assert.Equal(t, common.Unlimited, rs[1].Rate)
}

func TestLoadRatesMalformedAborts(t *testing.T) {
	l, layout, _ := newTestLoader(t, 10, "1500", "3000")
	writeSample(t, layout, "1500", true, "a.txt", "ts s_tcp_bytes\n1000 10\n")
	writeSample(t, layout, "3000", true, "a.txt", "ts s_tcp_bytes\n1 2 3\n")

	rs, err := l.LoadRates("5s", common.TCP, true)
	assert.Nil(t, rs)
	assert.True(t, errors.Is(err, tracelog.ErrMalformedRecord))
}

type countingLoader struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (c *countingLoader) LoadRates(step string, proto common.Protocol, media bool) ([]RateSample, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	tab, err := tracelog.NewTable(tracelog.FloatColumn("ts", 1))
	if err != nil {
		return nil, err
	}
	return []RateSample{{Rate: "1500", Samples: tab}, {Rate: common.Unlimited, Samples: tab}}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCacheHitAndExpiry(t *testing.T) {
	src := &countingLoader{}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	reg := prometheus.NewRegistry()
	c := NewCache(src, time.Minute, WithClock(clock.Now), WithLogger(quiet), WithRegisterer(reg))

	first, err := c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	second, err := c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())

	// callers own their slice
	second[0].Rate = "9999"
	third, err := c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	assert.Equal(t, common.RateCondition("1500"), third[0].Rate)

	_, err = c.LoadRates("5s", common.UDP, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	clock.Advance(time.Minute)
	_, err = c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("expired")))
}

func TestCacheErrorsNotStored(t *testing.T) {
	src := &countingLoader{err: fmt.Errorf("rate 1500: %w", tracelog.ErrMalformedRecord)}
	c := NewCache(src, time.Hour, WithLogger(quiet))

	_, err := c.LoadRates("5s", common.TCP, true)
	assert.True(t, errors.Is(err, tracelog.ErrMalformedRecord))
	_, err = c.LoadRates("5s", common.TCP, true)
	assert.Error(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	src := &countingLoader{delay: 50 * time.Millisecond}
	c := NewCache(src, time.Hour, WithLogger(quiet))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, err := c.LoadRates("5s", common.TCP, false)
			assert.NoError(t, err)
			assert.Len(t, rs, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCacheOverLoader(t *testing.T) {
	l, layout, _ := newTestLoader(t, 10, "1500")
	writeSample(t, layout, "1500", true, "a.txt", "ts s_tcp_bytes\n1000 10\n")
	c := NewCache(l, time.Hour, WithLogger(quiet))

	rs, err := c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	require.Len(t, rs, 1)

	// served from memory once the files are gone
	require.NoError(t, os.RemoveAll(layout.Root))
	again, err := c.LoadRates("5s", common.TCP, true)
	require.NoError(t, err)
	assert.Equal(t, rs, again)
}
