package httplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtrace/tracelog"
)

func TestMatchMime(t *testing.T) {
	assert.True(t, MatchMime("application/dash+xml", MediaMimes))
	assert.False(t, MatchMime("text/html", MediaMimes))
	assert.False(t, MatchMime("video/mp4", []string{""}))
}

func TestSelectMimes(t *testing.T) {
	tab, err := tracelog.NewTable(
		tracelog.FloatColumn(Start, 1, 2, 3),
		tracelog.StringColumn(Mime, "video/mp4", "text/html", "application/dash+xml"))
	require.NoError(t, err)

	media, err := SelectMimes(tab, MediaMimes)
	require.NoError(t, err)
	assert.Equal(t, 2, media.Len())
	assert.Equal(t, "application/dash+xml", media.Text(Mime, 1))

	mimes, err := Mimes(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"application/dash+xml", "text/html", "video/mp4"}, mimes)
}
