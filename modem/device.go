package modem

import (
	"encoding/json"
	"fmt"
)

// Identity is the hardware and software identification of a modem.
type Identity struct {
	HardwareVersion string `json:"hardware_version"`
	SoftwareVersion string `json:"software_version"`
	MACAddr         string `json:"mac_addr"`
	SerialNumber    string `json:"serial_number"`
	// Uptime in seconds.
	Uptime int64 `json:"uptime"`
}

// Device is a snapshot of a modem's status. It is populated by Scrape or
// by loading a cache file and is not modified afterwards.
type Device struct {
	Identity
	Downstream []*DownstreamChannel
	Upstream   []*UpstreamChannel
}

func (d *Device) DownstreamChannelCount() int {
	return len(d.Downstream)
}

func (d *Device) UpstreamChannelCount() int {
	return len(d.Upstream)
}

func (d *Device) String() string {
	return fmt.Sprintf("SurfBoard Modem v%s (Software %s, Serial Number %s): Up %d seconds",
		d.HardwareVersion, d.SoftwareVersion, d.SerialNumber, d.Uptime)
}

// Fields lists the modem level values in report order.
func (d *Device) Fields() []Field {
	return []Field{
		{"hardware_version", d.HardwareVersion},
		{"software_version", d.SoftwareVersion},
		{"mac_addr", d.MACAddr},
		{"serial_number", d.SerialNumber},
		{"uptime", d.Uptime},
		{"downstream_channel_count", d.DownstreamChannelCount()},
		{"upstream_channel_count", d.UpstreamChannelCount()},
	}
}

// Channels returns the channels of one direction in page order.
func (d *Device) Channels(direction Direction) []Channel {
	var channels []Channel
	switch direction {
	case Downstream:
		for _, c := range d.Downstream {
			channels = append(channels, c)
		}
	case Upstream:
		for _, c := range d.Upstream {
			channels = append(channels, c)
		}
	}
	return channels
}

// Channel returns the first channel of a direction with the given channel
// ID. Duplicate IDs are not detected.
func (d *Device) Channel(direction Direction, id int) (Channel, bool) {
	for _, c := range d.Channels(direction) {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

type deviceInfo struct {
	Identity
	DownstreamChannelCount int `json:"downstream_channel_count"`
	UpstreamChannelCount   int `json:"upstream_channel_count"`
}

type deviceJSON struct {
	DownstreamChannels []*DownstreamChannel `json:"downstream_channels"`
	UpstreamChannels   []*UpstreamChannel   `json:"upstream_channels"`
	Info               deviceInfo           `json:"info"`
}

func (d *Device) MarshalJSON() ([]byte, error) {
	out := deviceJSON{
		DownstreamChannels: d.Downstream,
		UpstreamChannels:   d.Upstream,
		Info: deviceInfo{
			Identity:               d.Identity,
			DownstreamChannelCount: d.DownstreamChannelCount(),
			UpstreamChannelCount:   d.UpstreamChannelCount(),
		},
	}
	if out.DownstreamChannels == nil {
		out.DownstreamChannels = []*DownstreamChannel{}
	}
	if out.UpstreamChannels == nil {
		out.UpstreamChannels = []*UpstreamChannel{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a snapshot. The channel counts in info are derived
// values and are ignored.
func (d *Device) UnmarshalJSON(data []byte) error {
	var in deviceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = Device{
		Identity:   in.Info.Identity,
		Downstream: in.DownstreamChannels,
		Upstream:   in.UpstreamChannels,
	}
	if d.Downstream == nil {
		d.Downstream = []*DownstreamChannel{}
	}
	if d.Upstream == nil {
		d.Upstream = []*UpstreamChannel{}
	}
	return nil
}
