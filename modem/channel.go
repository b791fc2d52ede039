package modem

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Direction int

const (
	Downstream Direction = iota + 1
	Upstream
)

func (d Direction) String() string {
	switch d {
	case Downstream:
		return "DOWNSTREAM"
	case Upstream:
		return "UPSTREAM"
	}
	return "UNKNOWN"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type LockStatus int

const (
	Unlocked LockStatus = iota + 1
	Locked
)

func (s LockStatus) String() string {
	if s == Locked {
		return "LOCKED"
	}
	return "UNLOCKED"
}

// Column order of the channel tables on the status page. Cells are assigned
// to fields by position only, so a reordered table mis-assigns silently.
var (
	DownstreamColumnKeys = []string{
		"channel",
		"lock_status",
		"modulation",
		"channel_id",
		"frequency",
		"power",
		"snr",
		"corrected",
		"uncorrected",
	}

	UpstreamColumnKeys = []string{
		"channel",
		"lock_status",
		"channel_type",
		"channel_id",
		"symbol_rate",
		"frequency",
		"power",
	}
)

// Field is one named value of a record, in display order.
type Field struct {
	Key   string
	Value interface{}
}

// Channel is implemented by *DownstreamChannel and *UpstreamChannel.
type Channel interface {
	Direction() Direction
	ID() int
	Status() LockStatus
	Fields() []Field
}

// DocsisChannel holds the columns both channel tables share.
type DocsisChannel struct {
	Channel    string         `json:"channel"`
	LockStatus string         `json:"lock_status"`
	ChannelID  int            `json:"channel_id"`
	Frequency  ValueWithUnits `json:"frequency"`
	Power      ValueWithUnits `json:"power"`
}

func (c *DocsisChannel) ID() int {
	return c.ChannelID
}

func (c *DocsisChannel) Status() LockStatus {
	if c.LockStatus == "Locked" {
		return Locked
	}
	return Unlocked
}

// setColumn assigns a shared column. It reports false for columns that
// belong to one of the variants.
func (c *DocsisChannel) setColumn(key, cell string) (bool, error) {
	switch key {
	case "channel":
		c.Channel = cell
	case "lock_status":
		c.LockStatus = cell
	case "channel_id":
		id, err := strconv.Atoi(cell)
		if err != nil {
			return true, err
		}
		c.ChannelID = id
	case "frequency":
		c.Frequency = ParseValue(cell)
	case "power":
		c.Power = ParseValue(cell)
	default:
		return false, nil
	}
	return true, nil
}

func (c *DocsisChannel) fields() []Field {
	return []Field{
		{"channel", c.Channel},
		{"lock_status", c.LockStatus},
		{"channel_id", c.ChannelID},
		{"frequency", c.Frequency},
		{"power", c.Power},
	}
}

type DownstreamChannel struct {
	DocsisChannel
	Modulation  string         `json:"modulation"`
	SNR         ValueWithUnits `json:"snr"`
	Corrected   int            `json:"corrected"`
	Uncorrected int            `json:"uncorrected"`
}

// NewDownstreamChannel maps the cells of one downstream table row onto
// DownstreamColumnKeys. A short row leaves the trailing fields zero.
func NewDownstreamChannel(cells []string) (*DownstreamChannel, error) {
	if len(cells) > len(DownstreamColumnKeys) {
		return nil, fmt.Errorf("downstream row has %d cells, expected at most %d", len(cells), len(DownstreamColumnKeys))
	}
	c := &DownstreamChannel{}
	for i, cell := range cells {
		key := DownstreamColumnKeys[i]
		ok, err := c.setColumn(key, cell)
		if !ok {
			switch key {
			case "modulation":
				c.Modulation = cell
			case "snr":
				c.SNR = ParseValue(cell)
			case "corrected":
				c.Corrected, err = strconv.Atoi(cell)
			case "uncorrected":
				c.Uncorrected, err = strconv.Atoi(cell)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("downstream column %s: %w", key, err)
		}
	}
	return c, nil
}

func (c *DownstreamChannel) Direction() Direction {
	return Downstream
}

func (c *DownstreamChannel) Fields() []Field {
	return append(c.fields(),
		Field{"modulation", c.Modulation},
		Field{"snr", c.SNR},
		Field{"corrected", c.Corrected},
		Field{"uncorrected", c.Uncorrected},
	)
}

// MarshalJSON adds the direction. It is not read back: the list a channel
// is stored in decides its direction.
func (c *DownstreamChannel) MarshalJSON() ([]byte, error) {
	type plain DownstreamChannel
	return json.Marshal(struct {
		*plain
		Direction Direction `json:"direction"`
	}{(*plain)(c), Downstream})
}

type UpstreamChannel struct {
	DocsisChannel
	ChannelType string         `json:"channel_type"`
	SymbolRate  ValueWithUnits `json:"symbol_rate"`
}

// NewUpstreamChannel maps the cells of one upstream table row onto
// UpstreamColumnKeys. A short row leaves the trailing fields zero.
func NewUpstreamChannel(cells []string) (*UpstreamChannel, error) {
	if len(cells) > len(UpstreamColumnKeys) {
		return nil, fmt.Errorf("upstream row has %d cells, expected at most %d", len(cells), len(UpstreamColumnKeys))
	}
	c := &UpstreamChannel{}
	for i, cell := range cells {
		key := UpstreamColumnKeys[i]
		ok, err := c.setColumn(key, cell)
		if !ok {
			switch key {
			case "channel_type":
				c.ChannelType = cell
			case "symbol_rate":
				c.SymbolRate = ParseValue(cell)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("upstream column %s: %w", key, err)
		}
	}
	return c, nil
}

func (c *UpstreamChannel) Direction() Direction {
	return Upstream
}

func (c *UpstreamChannel) Fields() []Field {
	return append(c.fields(),
		Field{"channel_type", c.ChannelType},
		Field{"symbol_rate", c.SymbolRate},
	)
}

func (c *UpstreamChannel) MarshalJSON() ([]byte, error) {
	type plain UpstreamChannel
	return json.Marshal(struct {
		*plain
		Direction Direction `json:"direction"`
	}{(*plain)(c), Upstream})
}

// NewChannel builds a channel of the given direction from one table row.
func NewChannel(direction Direction, cells []string) (Channel, error) {
	switch direction {
	case Downstream:
		c, err := NewDownstreamChannel(cells)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Upstream:
		c, err := NewUpstreamChannel(cells)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown channel direction %d", int(direction))
}
