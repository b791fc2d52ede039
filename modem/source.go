package modem

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/common/log"
	"github.com/spf13/afero"
)

const (
	statusPath       = "/cgi-bin/status"
	softwareInfoPath = "/cgi-bin/swinfo"

	statusFile       = "status.html"
	softwareInfoFile = "swinfo.html"
)

// Source provides the raw status pages of a modem.
type Source interface {
	Status(ctx context.Context) (io.ReadCloser, error)
	SoftwareInfo(ctx context.Context) (io.ReadCloser, error)
}

// HTTPConfig describes how to reach the modem's web interface.
type HTTPConfig struct {
	Address            string
	Port               int
	TLS                bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	// Transport wraps the default transport, e.g. for request metrics.
	Transport func(http.RoundTripper) http.RoundTripper
}

// HTTPSource fetches the pages from the modem. Requests are not retried.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

func NewHTTPSource(cfg HTTPConfig, logger log.Logger) (*HTTPSource, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("an IP address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 80
	}
	if logger == nil {
		logger = log.Base()
	}

	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: cfg.Address + ":" + strconv.Itoa(cfg.Port)}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}
	if cfg.Transport != nil {
		transport = cfg.Transport(transport)
	}

	return &HTTPSource{
		baseURL: u.String(),
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:  logger,
	}, nil
}

func (s *HTTPSource) Status(ctx context.Context) (io.ReadCloser, error) {
	return s.fetch(ctx, statusPath)
}

func (s *HTTPSource) SoftwareInfo(ctx context.Context) (io.ReadCloser, error) {
	return s.fetch(ctx, softwareInfoPath)
}

func (s *HTTPSource) fetch(ctx context.Context, filename string) (io.ReadCloser, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, filename)

	s.logger.Debugf("Fetching modem page from %s", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s failed: HTTP status %d", u.String(), resp.StatusCode)
	}
	return resp.Body, nil
}

// DirSource reads status.html and swinfo.html from a directory, for
// offline use and tests.
type DirSource struct {
	fs     afero.Fs
	dir    string
	logger log.Logger
}

func NewDirSource(fs afero.Fs, dir string, logger log.Logger) *DirSource {
	if logger == nil {
		logger = log.Base()
	}
	return &DirSource{fs: fs, dir: dir, logger: logger}
}

func (s *DirSource) Status(ctx context.Context) (io.ReadCloser, error) {
	return s.open(statusFile)
}

func (s *DirSource) SoftwareInfo(ctx context.Context) (io.ReadCloser, error) {
	return s.open(softwareInfoFile)
}

func (s *DirSource) open(name string) (io.ReadCloser, error) {
	filename := filepath.Join(s.dir, name)
	s.logger.Debugf("Loading modem data from %s", filename)
	f, err := s.fs.Open(filename)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ParseError reports a page that was fetched but could not be parsed.
type ParseError struct {
	Page string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Page, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Scrape reads both pages from src and assembles a Device.
func Scrape(ctx context.Context, src Source, parser *Parser) (*Device, error) {
	body, err := src.Status(ctx)
	if err != nil {
		return nil, err
	}
	downstream, upstream, err := parser.ParseStatus(body)
	body.Close()
	if err != nil {
		return nil, &ParseError{Page: statusFile, Err: err}
	}

	body, err = src.SoftwareInfo(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := parser.ParseIdentity(body)
	body.Close()
	if err != nil {
		return nil, &ParseError{Page: softwareInfoFile, Err: err}
	}

	return &Device{
		Identity:   identity,
		Downstream: downstream,
		Upstream:   upstream,
	}, nil
}
