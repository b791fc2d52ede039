package modem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/log"
	"github.com/spf13/afero"
)

// FetchFunc produces a fresh Device, usually by scraping the modem.
type FetchFunc func(ctx context.Context) (*Device, error)

// Cache keeps the last Device snapshot in a single JSON file. The file is
// not locked; concurrent writers to the same path are not supported.
type Cache struct {
	Fs   afero.Fs
	Path string
	TTL  time.Duration
	Now  func() time.Time

	logger log.Logger
}

func NewCache(fs afero.Fs, path string, ttl time.Duration, logger log.Logger) *Cache {
	if logger == nil {
		logger = log.Base()
	}
	return &Cache{
		Fs:     fs,
		Path:   path,
		TTL:    ttl,
		Now:    time.Now,
		logger: logger,
	}
}

// Resolve returns the cached Device while it is fresh and fetches (and
// stores) a new one otherwise. Without a path every call fetches and
// nothing is written.
func (c *Cache) Resolve(ctx context.Context, fetch FetchFunc) (*Device, error) {
	if c.Path == "" {
		return fetch(ctx)
	}

	refresh, err := c.stale()
	if err != nil {
		return nil, err
	}
	if !refresh {
		c.logger.Debugln("Loading modem data from cache")
		return c.Load()
	}

	d, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Store(d); err != nil {
		return nil, err
	}
	return d, nil
}

// stale compares the file age in whole seconds; a file exactly TTL old is
// still fresh.
func (c *Cache) stale() (bool, error) {
	fi, err := c.Fs.Stat(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Debugln("Cache file does not exist! It will be created")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	age := time.Duration(c.Now().Unix()-fi.ModTime().Unix()) * time.Second
	if age > c.TTL {
		c.logger.Debugln("Cache file needs to be refreshed")
		return true, nil
	}
	return false, nil
}

func (c *Cache) Load() (*Device, error) {
	c.logger.Debugf("Reading modem data from %s", c.Path)
	data, err := afero.ReadFile(c.Fs, c.Path)
	if err != nil {
		return nil, err
	}
	d := &Device{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decoding cache file %s: %w", c.Path, err)
	}
	return d, nil
}

func (c *Cache) Store(d *Device) error {
	c.logger.Debugf("Writing modem data to %s", c.Path)
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return err
	}
	return afero.WriteFile(c.Fs, c.Path, data, 0644)
}
