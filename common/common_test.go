package common

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCondition(t *testing.T) {
	assert.Equal(t, "1500kbits", RateCondition("1500").Dir())
	assert.Equal(t, "infikbits", Unlimited.Dir())
	assert.Equal(t, "1500 kbits", RateCondition("1500").Label())
	assert.Equal(t, "no-limits", Unlimited.Label())

	rates, err := ParseRates("1500kbits, 3000 ,infi")
	require.NoError(t, err)
	assert.Equal(t, []RateCondition{"1500", "3000", Unlimited}, rates)

	_, err = ParseRates(" , ")
	assert.Error(t, err)
}

func TestLogFileName(t *testing.T) {
	assert.Equal(t, "log_tcp_complete", LogTCPComplete.FileName())
	assert.Equal(t, "log_udp_periodic", LogUDPPeriodic.FileName())
	assert.Equal(t, "log_har_complete", LogHARComplete.FileName())
	assert.Equal(t, "log_video_complete", LogVideoComplete.FileName())
	assert.Equal(t, "log_audio_complete", LogAudioComplete.FileName())
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("UDP")
	require.NoError(t, err)
	assert.Equal(t, UDP, p)
	_, err = ParseProtocol("sctp")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1.50 Mbps", FmtBitrate(1.5e6))
	assert.Equal(t, "0 bps", FmtBitrate(0.5))
	assert.Equal(t, "512.00 B", FmtVolume(512))
	assert.Equal(t, "1.50 KiB", FmtVolume(1536))
	assert.Equal(t, "2.00s 345.00ms", FmtTimestamp(2345))
	assert.Equal(t, "-1.00s 750.00ms", FmtTimestamp(-250))
}

func TestECDF(t *testing.T) {
	samples := []float64{3, 1, 2, 2, 0}
	ecdf := ECDF(samples)
	require.Len(t, ecdf, 5)
	assert.Equal(t, []float64{3, 1, 2, 2, 0}, samples, "input must not be reordered")

	prev := 0.0
	for i, xy := range ecdf {
		assert.GreaterOrEqual(t, xy.Y, prev)
		assert.InDelta(t, float64(i+1)/5, xy.Y, 1e-12)
		prev = xy.Y
	}
	assert.Equal(t, 1.0, ecdf[len(ecdf)-1].Y)
	assert.Equal(t, 0.0, ecdf[0].X)
	assert.Equal(t, 0.6, ecdf[2].Y)
	assert.Equal(t, 0.8, ecdf[3].Y, "ties get distinct probabilities")
}

func TestECDFDropsNonFinite(t *testing.T) {
	ecdf := ECDF([]float64{1, math.NaN(), math.Inf(1), 2})
	require.Len(t, ecdf, 2)
	assert.Equal(t, 1.0, ecdf[1].Y)
	assert.Empty(t, ECDF(nil))
}

func TestListExperiments(t *testing.T) {
	root := t.TempDir()
	l := Layout{Root: root, Server: "dazn"}
	for _, name := range []string{"test-10", "test-2", "test-1", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(l.RateDir("1500"), name), 0o755))
	}
	names, err := l.ListExperiments("1500", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"test-1", "test-2"}, names)

	names, err = l.ListExperiments("1500", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"test-1", "test-2", "test-10"}, names)
}

func TestCheckDataFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log_tcp_complete"), []byte("ts te\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogBotComplete), []byte("rel event\n"), 0o644))

	ef, err := CheckDataFiles(dir)
	require.NoError(t, err)
	assert.True(t, ef.Bot.Exist)
	assert.True(t, ef.Logs[LogTCPComplete].Exist)
	assert.False(t, ef.Logs[LogUDPComplete].Exist)

	_, err = CheckDataFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
