package modem

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/common/log"
)

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestParseStatus(t *testing.T) {
	p := NewParser(log.NewNopLogger())
	downstream, upstream, err := p.ParseStatus(openFixture(t, "status.html"))
	if err != nil {
		t.Fatal(err)
	}
	if len(downstream) != 4 {
		t.Fatalf("got %d downstream channels, want 4", len(downstream))
	}
	if len(upstream) != 4 {
		t.Fatalf("got %d upstream channels, want 4", len(upstream))
	}

	first := downstream[0]
	if first.ChannelID != 17 || first.Modulation != "QAM256" || first.Frequency != NewValue(651.0, "MHz") {
		t.Errorf("unexpected first downstream channel %+v", first)
	}
	last := downstream[3]
	if last.Status() != Unlocked || last.SNR != NewValue("----", "") || last.Uncorrected != 311 {
		t.Errorf("unexpected last downstream channel %+v", last)
	}
	if last.Power != NewValue("-1.3 dBmV", "") {
		t.Errorf("negative power should be kept verbatim, got %#v", last.Power)
	}

	us := upstream[3]
	if us.ChannelType != "TDMA" || us.SymbolRate != NewValue(2560.0, "Ksym/sec") || us.Power != NewValue(44.0, "dBmV") {
		t.Errorf("unexpected last upstream channel %+v", us)
	}
}

const channelPage = `<html><body>
<table class="simpleTable">
<tr><th>Downstream</th></tr>
<tr><td>Channel</td><td>Lock Status</td></tr>
<tr><td> 1 </td><td>Locked</td><td>QAM256</td><td>5</td></tr>
<tr><td>2</td><td>Locked</td><td>QAM256</td><td>6</td><td>603.0 MHz</td></tr>
</table>
<table class="simpleTable other">
<tr><th>Upstream</th></tr>
<tr><td>Channel</td></tr>
</table>
<table class="simpleTable">
<tr><th>Something else</th></tr>
<tr><td>a</td></tr>
<tr><td>b</td></tr>
<tr><td>c</td></tr>
</table>
<table>
<tr><th>Downstream without marker</th></tr>
<tr><td>x</td></tr>
<tr><td>y</td></tr>
<tr><td>1</td><td>Locked</td></tr>
</table>
</body></html>`

func TestParseStatusPositional(t *testing.T) {
	p := NewParser(log.NewNopLogger())
	downstream, upstream, err := p.ParseStatus(strings.NewReader(channelPage))
	if err != nil {
		t.Fatal(err)
	}
	if len(upstream) != 0 {
		t.Errorf("got %d upstream channels, want 0", len(upstream))
	}
	if len(downstream) != 2 {
		t.Fatalf("got %d downstream channels, want 2", len(downstream))
	}
	if downstream[0].Channel != "1" || downstream[0].ChannelID != 5 || downstream[0].Frequency.Value != nil {
		t.Errorf("unexpected partial channel %+v", downstream[0])
	}
	if downstream[1].Frequency != NewValue(603.0, "MHz") || downstream[1].Power.Value != nil {
		t.Errorf("unexpected partial channel %+v", downstream[1])
	}
}

func TestParseStatusBadRow(t *testing.T) {
	page := `<table class="simpleTable"><tr><th>Upstream</th></tr><tr></tr>
<tr><td>1</td><td>Locked</td><td>ATDMA</td><td>one</td></tr></table>`
	p := NewParser(log.NewNopLogger())
	if _, _, err := p.ParseStatus(strings.NewReader(page)); err == nil {
		t.Fatal("expected error for non-numeric channel ID")
	}
}

func TestParseIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(&buf)
	logger.SetLevel("debug")
	p := NewParser(logger)

	id, err := p.ParseIdentity(openFixture(t, "swinfo.html"))
	if err != nil {
		t.Fatal(err)
	}
	want := Identity{
		HardwareVersion: "1.0",
		SoftwareVersion: "D30CM-OSPREY-2.4.0.1-GA-02-NOSH",
		MACAddr:         "00:01:5c:ab:cd:ef",
		SerialNumber:    "398471203948172039481726",
		Uptime:          5*86400 + 2*3600 + 33*60 + 10,
	}
	if id != want {
		t.Errorf("got %+v, want %+v", id, want)
	}
	if !strings.Contains(buf.String(), "Firmware Build Time") {
		t.Errorf("unmapped title was not logged: %s", buf.String())
	}
}

func TestParseUptime(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		warns bool
	}{
		{"5 d : 3 h : 10 m : 0 s", 442200, false},
		{"0 d : 00 h : 14 m : 35 s", 875, false},
		{"1 d:1 h:1 m:1 s", 90061, false},
		{"2 w : 1 h", 3600, true},
		{"garbage : 10 s", 10, true},
		{"x s : 1 m", 60, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		p := NewParser(log.NewLogger(&buf))
		if got := p.ParseUptime(tt.value); got != tt.want {
			t.Errorf("ParseUptime(%q) = %d, want %d", tt.value, got, tt.want)
		}
		if warned := buf.Len() > 0; warned != tt.warns {
			t.Errorf("ParseUptime(%q) warned = %v, want %v: %s", tt.value, warned, tt.warns, buf.String())
		}
	}
}
