package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"

	"github.com/markuslindenberg/surfboard_status/modem"
)

var channelLabelNames = []string{"channel_id"}

func newChannelMetric(subsystemName, metricName, docString string, extraLabels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemName, metricName), docString, append(channelLabelNames, extraLabels...), nil)
}

var (
	targetUpMetric = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "up"), "Was the last scrape of the modem successful.", nil, nil)
	uptimeMetric   = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "uptime_seconds"), "Modem uptime.", nil, nil)
	infoMetric     = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "info"), "Modem identification.",
		[]string{"hardware_version", "software_version", "mac_addr", "serial_number"}, nil)

	downstreamLocked      = newChannelMetric("downstream", "locked", "Downstream Lock Status")
	downstreamFrequency   = newChannelMetric("downstream", "frequency_hz", "Downstream Frequency")
	downstreamPower       = newChannelMetric("downstream", "power_dbmv", "Downstream Power Level")
	downstreamSNR         = newChannelMetric("downstream", "snr_db", "Downstream Signal to Noise Ratio")
	downstreamCorrected   = newChannelMetric("downstream", "codewords_corrected_total", "Downstream Corrected Codewords")
	downstreamUncorrected = newChannelMetric("downstream", "codewords_uncorrectable_total", "Downstream Uncorrectable Codewords")
	downstreamModulation  = newChannelMetric("downstream", "modulation", "Downstream Modulation", "modulation")

	upstreamLocked      = newChannelMetric("upstream", "locked", "Upstream Lock Status")
	upstreamFrequency   = newChannelMetric("upstream", "frequency_hz", "Upstream Frequency")
	upstreamPower       = newChannelMetric("upstream", "power_dbmv", "Upstream Power Level")
	upstreamSymbolRate  = newChannelMetric("upstream", "symbol_rate", "Upstream Symbol Rate in symbols per second")
	upstreamChannelType = newChannelMetric("upstream", "channel_type", "Upstream Channel Type", "type")

	deviceMetrics = []*prometheus.Desc{
		targetUpMetric, uptimeMetric, infoMetric,
		downstreamLocked, downstreamFrequency, downstreamPower, downstreamSNR,
		downstreamCorrected, downstreamUncorrected, downstreamModulation,
		upstreamLocked, upstreamFrequency, upstreamPower, upstreamSymbolRate, upstreamChannelType,
	}
)

// Scale factors to the base unit of a metric. Values in any other unit are
// not exported.
var (
	frequencyUnits  = map[string]float64{"Hz": 1, "kHz": 1e3, "MHz": 1e6, "GHz": 1e9}
	powerUnits      = map[string]float64{"dBmV": 1}
	snrUnits        = map[string]float64{"dB": 1}
	symbolRateUnits = map[string]float64{"sym/sec": 1, "Ksym/sec": 1e3, "Msym/sec": 1e6}
)

type scrapeFunc func(ctx context.Context) (*modem.Device, error)

// clientMetrics instruments the HTTP client talking to the modem.
type clientMetrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func newClientMetrics() *clientMetrics {
	return &clientMetrics{
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_client_requests_total",
			Help:      "HTTP requests to the modem",
		}, []string{"code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exporter_client_request_duration_seconds",
			Help:      "Histogram of modem HTTP request latencies.",
		}, []string{"code", "method"}),
	}
}

func (m *clientMetrics) instrument(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(m.requestCount,
		promhttp.InstrumentRoundTripperDuration(m.requestDuration, next))
}

type Exporter struct {
	scrape scrapeFunc
	client *clientMetrics
	logger log.Logger
	mutex  sync.Mutex

	totalScrapes  prometheus.Counter
	parseFailures *prometheus.CounterVec
}

func NewExporter(scrape scrapeFunc, client *clientMetrics, logger log.Logger) *Exporter {
	return &Exporter{
		scrape: scrape,
		client: client,
		logger: logger,
		totalScrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_scrapes_total",
			Help:      "Current total modem scrapes.",
		}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_parse_errors_total",
			Help:      "Number of errors while parsing HTML tables.",
		}, []string{"file"}),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range deviceMetrics {
		ch <- m
	}

	ch <- e.totalScrapes.Desc()
	e.parseFailures.Describe(ch)
	if e.client != nil {
		e.client.requestCount.Describe(ch)
		e.client.requestDuration.Describe(ch)
	}
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.totalScrapes.Inc()
	var up float64
	d, err := e.scrape(context.Background())
	if err != nil {
		e.logger.Errorln(err)
		var parseErr *modem.ParseError
		if errors.As(err, &parseErr) {
			e.parseFailures.WithLabelValues(parseErr.Page).Inc()
		}
	} else {
		up = 1
		e.collectDevice(ch, d)
	}
	ch <- prometheus.MustNewConstMetric(targetUpMetric, prometheus.GaugeValue, up)

	ch <- e.totalScrapes
	e.parseFailures.Collect(ch)
	if e.client != nil {
		e.client.requestCount.Collect(ch)
		e.client.requestDuration.Collect(ch)
	}
}

func (e *Exporter) collectDevice(ch chan<- prometheus.Metric, d *modem.Device) {
	ch <- prometheus.MustNewConstMetric(uptimeMetric, prometheus.GaugeValue, float64(d.Uptime))
	ch <- prometheus.MustNewConstMetric(infoMetric, prometheus.GaugeValue, 1,
		d.HardwareVersion, d.SoftwareVersion, d.MACAddr, d.SerialNumber)

	seen := map[int]bool{}
	for _, c := range d.Downstream {
		if seen[c.ChannelID] {
			e.logger.Warnf("Skipping downstream channel %d: channel ID is not unique", c.ChannelID)
			continue
		}
		seen[c.ChannelID] = true
		channel := strconv.Itoa(c.ChannelID)
		ch <- prometheus.MustNewConstMetric(downstreamLocked, prometheus.GaugeValue, locked(c), channel)
		e.collectValue(ch, downstreamFrequency, c.Frequency, frequencyUnits, channel)
		e.collectValue(ch, downstreamPower, c.Power, powerUnits, channel)
		e.collectValue(ch, downstreamSNR, c.SNR, snrUnits, channel)
		ch <- prometheus.MustNewConstMetric(downstreamCorrected, prometheus.CounterValue, float64(c.Corrected), channel)
		ch <- prometheus.MustNewConstMetric(downstreamUncorrected, prometheus.CounterValue, float64(c.Uncorrected), channel)
		ch <- prometheus.MustNewConstMetric(downstreamModulation, prometheus.GaugeValue, 1, channel, c.Modulation)
	}

	seen = map[int]bool{}
	for _, c := range d.Upstream {
		if seen[c.ChannelID] {
			e.logger.Warnf("Skipping upstream channel %d: channel ID is not unique", c.ChannelID)
			continue
		}
		seen[c.ChannelID] = true
		channel := strconv.Itoa(c.ChannelID)
		ch <- prometheus.MustNewConstMetric(upstreamLocked, prometheus.GaugeValue, locked(c), channel)
		e.collectValue(ch, upstreamFrequency, c.Frequency, frequencyUnits, channel)
		e.collectValue(ch, upstreamPower, c.Power, powerUnits, channel)
		e.collectValue(ch, upstreamSymbolRate, c.SymbolRate, symbolRateUnits, channel)
		ch <- prometheus.MustNewConstMetric(upstreamChannelType, prometheus.GaugeValue, 1, channel, c.ChannelType)
	}
}

func (e *Exporter) collectValue(ch chan<- prometheus.Metric, desc *prometheus.Desc, v modem.ValueWithUnits, units map[string]float64, channel string) {
	value, ok := v.Float()
	if !ok {
		return
	}
	scale, ok := units[v.Unit]
	if !ok {
		e.logger.Debugf("Skipping %s %s for channel %s: unexpected unit", v, desc, channel)
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value*scale, channel)
}

func locked(c modem.Channel) float64 {
	if c.Status() == modem.Locked {
		return 1
	}
	return 0
}
