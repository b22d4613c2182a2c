package httplog

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"streamtrace/tracelog"
)

//HTTP transaction log fields
const (
	Start        = "ts"
	End          = "te"
	Method       = "method"
	URL          = "url"
	Connection   = "connection"
	Mime         = "mime"
	Size         = "size"
	VideoBitrate = "video_bitrate"
	AudioBitrate = "audio_bitrate"
)

//MIME substrings of the streaming transactions
var MediaMimes = []string{"audio", "video", "dash"}

func MatchMime(mime string, subs []string) bool {
	for _, s := range subs {
		if len(s) > 0 && strings.Contains(mime, s) {
			return true
		}
	}
	return false
}

//SelectMimes keeps the transactions whose MIME type contains one of subs
func SelectMimes(records *tracelog.Table, subs []string) (*tracelog.Table, error) {
	mimes, err := records.Strings(Mime)
	if err != nil {
		return nil, err
	}
	return records.Filter(func(i int) bool { return MatchMime(mimes[i], subs) }), nil
}

//Mimes lists the distinct MIME types of a log, sorted
func Mimes(records *tracelog.Table) ([]string, error) {
	mimes, err := records.Strings(Mime)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, m := range mimes {
		set[m] = struct{}{}
	}
	out := maps.Keys(set)
	slices.Sort(out)
	return out, nil
}
