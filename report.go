package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/markuslindenberg/surfboard_status/modem"
)

// reporter prints a Device, either as a whole or one dotted key at a time:
//
//	modem[.<field>]
//	downstream_channel[.<channel id>[.<field>]]
//	upstream_channel[.<channel id>[.<field>]]
type reporter struct {
	w     io.Writer
	units bool
}

func (r *reporter) snapshot(d *modem.Device) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}

func (r *reporter) key(d *modem.Device, key string) error {
	parts := strings.Split(key, ".")
	group, parts := parts[0], parts[1:]

	switch group {
	case "modem":
		return r.modemGroup(d, parts)
	case "downstream_channel":
		return r.channelGroup(group, d, modem.Downstream, parts)
	case "upstream_channel":
		return r.channelGroup(group, d, modem.Upstream, parts)
	}
	return fmt.Errorf("key group %s is not supported", group)
}

func (r *reporter) modemGroup(d *modem.Device, parts []string) error {
	fields := d.Fields()
	if len(parts) == 0 {
		return r.flat("modem.", fields)
	}
	v, ok := lookup(fields, parts[0])
	if !ok {
		return fmt.Errorf("modem has no field %s", parts[0])
	}
	_, err := fmt.Fprintln(r.w, r.format(v))
	return err
}

func (r *reporter) channelGroup(group string, d *modem.Device, direction modem.Direction, parts []string) error {
	if len(parts) == 0 {
		var all []string
		for _, c := range d.Channels(direction) {
			all = append(all, r.pairs(fmt.Sprintf("%s.%d.", group, c.ID()), c.Fields())...)
		}
		_, err := fmt.Fprintln(r.w, strings.Join(all, " "))
		return err
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid channel ID %q", parts[0])
	}
	channel, ok := d.Channel(direction, id)
	if !ok {
		return fmt.Errorf("channel with ID %d does not exist", id)
	}

	if len(parts) == 1 {
		return r.flat(fmt.Sprintf("%s.%d.", group, id), channel.Fields())
	}
	v, ok := lookup(channel.Fields(), parts[1])
	if !ok {
		return fmt.Errorf("channel has no field %s", parts[1])
	}
	_, err = fmt.Fprintln(r.w, r.format(v))
	return err
}

func (r *reporter) flat(prefix string, fields []modem.Field) error {
	_, err := fmt.Fprintln(r.w, strings.Join(r.pairs(prefix, fields), " "))
	return err
}

func (r *reporter) pairs(prefix string, fields []modem.Field) []string {
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, prefix+f.Key+": "+r.format(f.Value))
	}
	return pairs
}

func (r *reporter) format(v interface{}) string {
	if v, ok := v.(modem.ValueWithUnits); ok {
		return v.Format(r.units)
	}
	return fmt.Sprint(v)
}

func lookup(fields []modem.Field, key string) (interface{}, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
