package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"
	"github.com/prometheus/common/version"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/markuslindenberg/surfboard_status/modem"
)

const (
	programName = "surfboard_status"
	namespace   = "surfboard"
)

func main() {
	var (
		configFile = kingpin.Flag("config.file", "YAML configuration file.").OverrideDefaultFromEnvar("SURFBOARD_STATUS_CONFIG").String()
		address    = kingpin.Flag("ip", "The IP address of the modem to scrape.").Short('i').OverrideDefaultFromEnvar("SURFBOARD_STATUS_IP").String()
		port       = kingpin.Flag("port", "Port of the modem's web interface (default 80).").Int()
		useTLS     = kingpin.Flag("tls", "Use https to reach the modem.").Bool()
		insecure   = kingpin.Flag("tls.insecure-skip-verify", "Do not verify the modem's certificate.").Bool()
		timeout    = kingpin.Flag("client.timeout", "Timeout for HTTP requests to the modem (default 10s).").Duration()
		cachePath  = kingpin.Flag("cache", "Cache the modem data in this file.").Short('c').OverrideDefaultFromEnvar("SURFBOARD_STATUS_CACHE").String()
		cacheTTL   = kingpin.Flag("cache-ttl", "Refresh the cache data if it is older than this (default 30s).").Duration()
		testData   = kingpin.Flag("test-data", "Load status.html and swinfo.html from this directory instead of requesting them from the modem.").Short('t').String()
		debug      = kingpin.Flag("debug", "Log debug messages.").Short('d').Bool()

		queryCmd = kingpin.Command("query", "Print the modem data.").Default()
		key      = queryCmd.Flag("key", "Only report this key, e.g. modem.uptime or downstream_channel.17.snr.").Short('k').String()
		units    = queryCmd.Flag("units", "Display units when displaying data.").Bool()
		textfile = queryCmd.Flag("textfile", "Also write the modem data as Prometheus metrics to this file.").String()

		serveCmd      = kingpin.Command("serve", "Expose the modem data as Prometheus metrics.")
		listenAddress = serveCmd.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9624").OverrideDefaultFromEnvar("SURFBOARD_STATUS_LISTEN").String()
		metricsPath   = serveCmd.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
	)

	log.AddFlags(kingpin.CommandLine)
	kingpin.Version(version.Print(programName))
	kingpin.HelpFlag.Short('h')
	command := kingpin.Parse()

	if *debug {
		if err := log.Base().SetLevel("debug"); err != nil {
			log.Fatal(err)
		}
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *address != "" {
		cfg.Modem.Address = *address
	}
	if *port != 0 {
		cfg.Modem.Port = *port
	}
	if *useTLS {
		cfg.Modem.TLS = true
	}
	if *insecure {
		cfg.Modem.InsecureSkipVerify = true
	}
	if *timeout != 0 {
		cfg.Modem.Timeout = *timeout
	}
	if *cachePath != "" {
		cfg.Cache.Path = *cachePath
	}
	if *cacheTTL != 0 {
		cfg.Cache.TTL = *cacheTTL
	}

	logger := log.Base()
	client := newClientMetrics()

	var src modem.Source
	if *testData != "" {
		src = modem.NewDirSource(afero.NewOsFs(), *testData, logger)
	} else {
		httpSource, err := modem.NewHTTPSource(modem.HTTPConfig{
			Address:            cfg.Modem.Address,
			Port:               cfg.Modem.Port,
			TLS:                cfg.Modem.TLS,
			InsecureSkipVerify: cfg.Modem.InsecureSkipVerify,
			Timeout:            cfg.Modem.Timeout,
			Transport:          client.instrument,
		}, logger)
		if err != nil {
			log.Fatal(err)
		}
		src = httpSource
	}

	parser := modem.NewParser(logger)
	cache := modem.NewCache(afero.NewOsFs(), cfg.Cache.Path, cfg.Cache.TTL, logger)
	fetch := func(ctx context.Context) (*modem.Device, error) {
		return modem.Scrape(ctx, src, parser)
	}

	switch command {
	case queryCmd.FullCommand():
		d, err := cache.Resolve(context.Background(), fetch)
		if err != nil {
			log.Fatal(err)
		}

		if *textfile != "" {
			registry := prometheus.NewRegistry()
			registry.MustRegister(NewExporter(func(context.Context) (*modem.Device, error) {
				return d, nil
			}, client, logger))
			if err := prometheus.WriteToTextfile(*textfile, registry); err != nil {
				log.Fatal(err)
			}
		}

		r := &reporter{w: os.Stdout, units: *units}
		if *key != "" {
			err = r.key(d, *key)
		} else {
			err = r.snapshot(d)
		}
		if err != nil {
			log.Fatal(err)
		}

	case serveCmd.FullCommand():
		log.Infoln("Starting", programName, version.Info())
		log.Infoln("Build context", version.BuildContext())

		exporter := NewExporter(func(ctx context.Context) (*modem.Device, error) {
			return cache.Resolve(ctx, fetch)
		}, client, logger)
		prometheus.MustRegister(exporter)
		prometheus.MustRegister(version.NewCollector(programName))

		log.Infoln("Listening on", *listenAddress)
		http.Handle(*metricsPath, promhttp.Handler())
		http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>
             <head><title>SurfBoard Status</title></head>
             <body>
             <h1>SurfBoard Status</h1>
             <p><a href='` + *metricsPath + `'>Metrics</a></p>
             </body>
             </html>`))
		})
		log.Fatal(http.ListenAndServe(*listenAddress, nil))
	}
}
