package report

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"streamtrace/common"
	"streamtrace/evaluation"
	"streamtrace/samples"
	"streamtrace/session"
	"streamtrace/tracelog"
	"streamtrace/tstat"
)

//Analyzer runs the analyses of one service dataset
type Analyzer struct {
	Samples   samples.SampleLoader
	Layout    common.Layout
	ResDir    string
	Step      string        //sample directory granularity, e.g. "10000"
	Bucket    time.Duration //aggregation bucket width
	Segmenter *session.Segmenter
	Workers   int
	MaxFiles  int //cap on the experiments listed per rate
	Logger    *slog.Logger
}

func (a *Analyzer) logger(id string) *slog.Logger {
	l := a.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("request_id", id)
}

//ListExperiments returns the test-N names of a rate in N order, at most MaxFiles of them
func (a *Analyzer) ListExperiments(rate common.RateCondition) ([]string, error) {
	names, err := a.Layout.ListExperiments(rate, a.MaxFiles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracelog.ErrDataUnavailable, err)
	}
	return names, nil
}

func NewRequestID() string {
	return uuid.NewString()
}

//media and noise series of one metric
type TrendPair struct {
	Metric string              `json:"metric"`
	Media  []evaluation.Series `json:"media"`
	Noise  []evaluation.Series `json:"noise,omitempty"`
}

//media and noise distributions of one metric with their p50/p95 per rate
type DistributionPair struct {
	Metric       string                    `json:"metric"`
	Media        []evaluation.Distribution `json:"media"`
	Noise        []evaluation.Distribution `json:"noise"`
	MediaSummary []evaluation.Summary      `json:"media_summary"`
	NoiseSummary []evaluation.Summary      `json:"noise_summary"`
}

type ProtocolSection struct {
	Protocol       string                `json:"protocol"`
	ServerBytes    TrendPair             `json:"server_bytes"`
	ClientBytes    TrendPair             `json:"client_bytes"`
	ServerBytesCDF DistributionPair      `json:"server_bytes_cdf"`
	ClientBytesCDF DistributionPair      `json:"client_bytes_cdf"`
	BinsSpanCDF    DistributionPair      `json:"bins_span_cdf"`
	VideoRate      TrendPair             `json:"video_rate"`
	AudioRate      TrendPair             `json:"audio_rate"`
	BytesVsVideo   []evaluation.PointSet `json:"bytes_vs_video"`
}

type Comparison struct {
	RequestID string            `json:"request_id"`
	Step      string            `json:"step"`
	Bucket    time.Duration     `json:"bucket"`
	Sections  []ProtocolSection `json:"sections"`
}

//Compare builds the cross-rate comparison of every protocol
func (a *Analyzer) Compare(protos []common.Protocol) (*Comparison, error) {
	id := NewRequestID()
	log := a.logger(id)
	start := time.Now()
	cmp := &Comparison{RequestID: id, Step: a.Step, Bucket: a.Bucket}
	for _, p := range protos {
		sec, err := a.compareProtocol(p, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		cmp.Sections = append(cmp.Sections, *sec)
	}
	log.Info("comparison done", "protocols", len(protos), "elapsed", time.Since(start))
	return cmp, nil
}

func (a *Analyzer) compareProtocol(p common.Protocol, log *slog.Logger) (*ProtocolSection, error) {
	media, err := a.Samples.LoadRates(a.Step, p, true)
	if err != nil {
		return nil, err
	}
	noise, err := a.Samples.LoadRates(a.Step, p, false)
	if err != nil {
		return nil, err
	}
	log.Debug("samples ready", "protocol", p.String(), "media_rates", len(media), "noise_rates", len(noise))

	sec := &ProtocolSection{Protocol: p.String()}
	trend := func(metric string, withNoise bool) (TrendPair, error) {
		tp := TrendPair{Metric: metric}
		if tp.Media, err = evaluation.MeanTrends(media, tstat.Start, metric, a.Bucket, log); err != nil {
			return tp, err
		}
		if withNoise {
			tp.Noise, err = evaluation.MeanTrends(noise, tstat.Start, metric, a.Bucket, log)
		}
		return tp, err
	}
	cdf := func(metric string) (DistributionPair, error) {
		dp := DistributionPair{Metric: metric}
		if dp.Media, err = evaluation.CDFs(media, metric, log); err != nil {
			return dp, err
		}
		if dp.Noise, err = evaluation.CDFs(noise, metric, log); err != nil {
			return dp, err
		}
		dp.MediaSummary = evaluation.Summaries(dp.Media)
		dp.NoiseSummary = evaluation.Summaries(dp.Noise)
		return dp, nil
	}

	sb, cb := tstat.ServerBytes(p), tstat.ClientBytes(p)
	if sec.ServerBytes, err = trend(sb, true); err != nil {
		return nil, err
	}
	if sec.ClientBytes, err = trend(cb, true); err != nil {
		return nil, err
	}
	if sec.ServerBytesCDF, err = cdf(sb); err != nil {
		return nil, err
	}
	if sec.ClientBytesCDF, err = cdf(cb); err != nil {
		return nil, err
	}
	if sec.BinsSpanCDF, err = cdf(tstat.AvgBinsSpan); err != nil {
		return nil, err
	}
	if sec.VideoRate, err = trend(tstat.AvgVideoRate, false); err != nil {
		return nil, err
	}
	if sec.AudioRate, err = trend(tstat.AvgAudioRate, false); err != nil {
		return nil, err
	}
	if sec.BytesVsVideo, err = evaluation.Correlations(media, sb, tstat.AvgVideoRate, log); err != nil {
		return nil, err
	}
	for _, ps := range sec.BytesVsVideo {
		log.Debug("bytes vs video quality", "protocol", p.String(), "rate", string(ps.Rate),
			"points", ps.Len(), "pearson", ps.Pearson())
	}
	return sec, nil
}
