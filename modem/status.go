package modem

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/common/log"
)

// tableSkipRows is the number of heading rows above the channel rows.
const tableSkipRows = 2

var uptimeUnits = map[string]int64{
	"d": 24 * 60 * 60,
	"h": 60 * 60,
	"m": 60,
	"s": 1,
}

var identityTitles = map[string]string{
	"Hardware Version":        "hardware_version",
	"Software Version":        "software_version",
	"Cable Modem MAC Address": "mac_addr",
	"Serial Number":           "serial_number",
}

// Parser extracts channels and identity from SurfBoard status pages. Layout
// deviations are not validated; rows and titles it does not understand are
// logged and skipped.
type Parser struct {
	logger log.Logger
}

func NewParser(logger log.Logger) *Parser {
	if logger == nil {
		logger = log.Base()
	}
	return &Parser{logger: logger}
}

// ParseStatus reads the channel tables of the status page (/cgi-bin/status).
func (p *Parser) ParseStatus(r io.Reader) (downstream []*DownstreamChannel, upstream []*UpstreamChannel, err error) {
	tables, err := parseTables(r, tableClass)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing status page: %w", err)
	}

	downstream = []*DownstreamChannel{}
	upstream = []*UpstreamChannel{}
	for _, table := range tables {
		switch {
		case strings.Contains(table.heading, "Downstream"):
			for _, row := range channelRows(table) {
				c, err := NewDownstreamChannel(row)
				if err != nil {
					return nil, nil, err
				}
				downstream = append(downstream, c)
			}
		case strings.Contains(table.heading, "Upstream"):
			for _, row := range channelRows(table) {
				c, err := NewUpstreamChannel(row)
				if err != nil {
					return nil, nil, err
				}
				upstream = append(upstream, c)
			}
		default:
			p.logger.Debugf("Skipping table %q", table.heading)
		}
	}
	return downstream, upstream, nil
}

func channelRows(table htmlTable) [][]string {
	if len(table.rows) <= tableSkipRows {
		return nil
	}
	return table.rows[tableSkipRows:]
}

// ParseIdentity reads the Information and Status tables of the software
// information page (/cgi-bin/swinfo).
func (p *Parser) ParseIdentity(r io.Reader) (Identity, error) {
	var id Identity
	tables, err := parseTables(r, tableClass)
	if err != nil {
		return id, fmt.Errorf("parsing software information page: %w", err)
	}

	for _, table := range tables {
		switch table.heading {
		case "Information":
			p.parseInformationTable(table, &id)
		case "Status":
			p.parseStatusTable(table, &id)
		}
	}
	return id, nil
}

func (p *Parser) parseInformationTable(table htmlTable, id *Identity) {
	for _, row := range table.rows {
		if len(row) < 2 {
			continue
		}
		title, value := row[0], row[1]
		key, ok := identityTitles[title]
		if !ok {
			p.logger.Debugf("Skipping title %s: title not in key map", title)
			continue
		}
		switch key {
		case "hardware_version":
			id.HardwareVersion = value
		case "software_version":
			id.SoftwareVersion = value
		case "mac_addr":
			id.MACAddr = value
		case "serial_number":
			id.SerialNumber = value
		}
	}
}

func (p *Parser) parseStatusTable(table htmlTable, id *Identity) {
	for _, row := range table.rows {
		if len(row) < 2 || row[0] != "Up Time" {
			continue
		}
		p.logger.Debugf("Parsing %s: %s", row[0], row[1])
		id.Uptime = p.ParseUptime(row[1])
		p.logger.Debugf("Calculated modem uptime: %ds", id.Uptime)
		return
	}
}

// ParseUptime converts "5 d : 02 h : 33 m : 10 s" to seconds. Tokens with
// an unknown unit or without a number are logged and do not count.
func (p *Parser) ParseUptime(value string) (uptime int64) {
	for _, part := range strings.Split(value, ":") {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			p.logger.Warnf("Malformed part %q in uptime %s", part, value)
			continue
		}
		v, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			p.logger.Warnf("Malformed part %q in uptime %s", part, value)
			continue
		}
		multiplier, ok := uptimeUnits[fields[1]]
		if !ok {
			p.logger.Warnf("Unknown key %s in uptime %s", fields[1], value)
			continue
		}
		uptime += v * multiplier
	}
	return uptime
}
