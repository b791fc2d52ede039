package modem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/common/log"
	"github.com/spf13/afero"
)

func fixtureDevice(t *testing.T) *Device {
	t.Helper()
	src := NewDirSource(afero.NewOsFs(), "testdata", log.NewNopLogger())
	d, err := Scrape(context.Background(), src, NewParser(log.NewNopLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

type countingFetch struct {
	device *Device
	calls  int
}

func (f *countingFetch) fetch(ctx context.Context) (*Device, error) {
	f.calls++
	return f.device, nil
}

func TestResolveWithoutPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &countingFetch{device: fixtureDevice(t)}
	c := NewCache(fs, "", 30*time.Second, log.NewNopLogger())

	for i := 0; i < 2; i++ {
		if _, err := c.Resolve(context.Background(), f.fetch); err != nil {
			t.Fatal(err)
		}
	}
	if f.calls != 2 {
		t.Errorf("fetch called %d times, want 2", f.calls)
	}
	entries, _ := afero.ReadDir(fs, "/")
	if len(entries) != 0 {
		t.Errorf("nothing should be written without a cache path, found %d entries", len(entries))
	}
}

func TestResolveTTL(t *testing.T) {
	const ttl = 30 * time.Second
	mtime := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		age     time.Duration
		fetches int
	}{
		{"fresh", 10 * time.Second, 0},
		{"exactly ttl", ttl, 0},
		{"expired", ttl + time.Second, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			f := &countingFetch{device: fixtureDevice(t)}
			c := NewCache(fs, "/cache.json", ttl, log.NewNopLogger())
			if err := c.Store(f.device); err != nil {
				t.Fatal(err)
			}
			if err := fs.Chtimes("/cache.json", mtime, mtime); err != nil {
				t.Fatal(err)
			}
			c.Now = func() time.Time { return mtime.Add(tt.age) }

			d, err := c.Resolve(context.Background(), f.fetch)
			if err != nil {
				t.Fatal(err)
			}
			if f.calls != tt.fetches {
				t.Errorf("fetch called %d times, want %d", f.calls, tt.fetches)
			}
			if d.DownstreamChannelCount() != 4 || d.UpstreamChannelCount() != 4 {
				t.Errorf("unexpected device %v", d)
			}
		})
	}
}

func TestResolveCreatesCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &countingFetch{device: fixtureDevice(t)}
	c := NewCache(fs, "/var/cache/modem.json", 30*time.Second, log.NewNopLogger())
	if err := fs.MkdirAll("/var/cache", 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Resolve(context.Background(), f.fetch); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fs, "/var/cache/modem.json"); !ok {
		t.Fatal("cache file was not written")
	}

	// the second call is served from the file
	if _, err := c.Resolve(context.Background(), f.fetch); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("fetch called %d times, want 1", f.calls)
	}
}

func TestResolveFetchError(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewCache(fs, "/cache.json", 30*time.Second, log.NewNopLogger())
	fetchErr := errors.New("connection refused")

	_, err := c.Resolve(context.Background(), func(ctx context.Context) (*Device, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("got %v, want %v", err, fetchErr)
	}
	if ok, _ := afero.Exists(fs, "/cache.json"); ok {
		t.Error("cache file written after failed fetch")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	want := fixtureDevice(t)
	c := NewCache(fs, "/cache.json", time.Minute, log.NewNopLogger())
	if err := c.Store(want); err != nil {
		t.Fatal(err)
	}

	got, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Identity != want.Identity {
		t.Errorf("identity: got %+v, want %+v", got.Identity, want.Identity)
	}
	if len(got.Downstream) != len(want.Downstream) || len(got.Upstream) != len(want.Upstream) {
		t.Fatalf("channel counts differ: got %d/%d, want %d/%d",
			len(got.Downstream), len(got.Upstream), len(want.Downstream), len(want.Upstream))
	}
	for i := range want.Downstream {
		if *got.Downstream[i] != *want.Downstream[i] {
			t.Errorf("downstream %d: got %+v, want %+v", i, got.Downstream[i], want.Downstream[i])
		}
	}
	for i := range want.Upstream {
		if *got.Upstream[i] != *want.Upstream[i] {
			t.Errorf("upstream %d: got %+v, want %+v", i, got.Upstream[i], want.Upstream[i])
		}
	}
}

func TestCacheLoadCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/cache.json", []byte("{not json"), 0644)
	c := NewCache(fs, "/cache.json", time.Minute, log.NewNopLogger())
	if _, err := c.Load(); err == nil {
		t.Fatal("expected decode error")
	}
}
