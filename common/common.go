package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

func MarshalResult(v interface{}) (io.Reader, error) {
	b, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func UnMarshalResult(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func FmtBitrate(bitrate float64) string {
	units := []string{"bps", "Kbps", "Mbps", "Gbps", "Tbps"}
	thresholds := []float64{1, 1e3, 1e6, 1e9, 1e12}
	for i := len(thresholds) - 1; i >= 0; i-- {
		if bitrate >= thresholds[i] {
			return fmt.Sprintf("%.2f %s", bitrate/thresholds[i], units[i])
		}
	}
	return "0 bps"
}

//binary units, beyond TiB stays in TiB
func FmtVolume(volume float64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	for i, u := range units {
		if volume < 1024 || i == len(units)-1 {
			return fmt.Sprintf("%.2f %s", volume, u)
		}
		volume /= 1024
	}
	return ""
}

//milliseconds split in whole seconds (floored) and the non-negative millisecond remainder
func FmtTimestamp(ms float64) string {
	sec := math.Floor(ms / 1000)
	return fmt.Sprintf("%.2fs %.2fms", sec, ms-sec*1000)
}
