package modem

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var valueRE = regexp.MustCompile(`^(?P<value>[0-9.]+)[\s\x{00a0}]*(?P<unit>[a-zA-Z/]+)`)

// ValueWithUnits is a measurement scraped from a status page cell, e.g.
// "601.0 MHz". Value holds a float64 when the cell matched the
// <number><unit> pattern and the verbatim cell text otherwise. Unit is empty
// when absent.
//
// Unit prefixes are kept as scraped: "Ksym/sec" stays a unit of its own and
// the value is not rescaled.
type ValueWithUnits struct {
	Value interface{}
	Unit  string
}

// ParseValue parses an annotated cell. Cells that do not start with a number
// followed by a unit are kept as text without a unit.
func ParseValue(raw string) ValueWithUnits {
	m := valueRE.FindStringSubmatch(raw)
	if m == nil {
		return ValueWithUnits{Value: raw}
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		// "1.2.3 MHz" matches the pattern but is not a number.
		return ValueWithUnits{Value: raw}
	}
	return ValueWithUnits{Value: f, Unit: m[2]}
}

// NewValue builds a value from its decomposed form without parsing it again.
func NewValue(value interface{}, unit string) ValueWithUnits {
	return ValueWithUnits{Value: value, Unit: unit}
}

// Float returns the numeric value, if there is one.
func (v ValueWithUnits) Float() (float64, bool) {
	f, ok := v.Value.(float64)
	return f, ok
}

// Format renders the value for humans, appending the unit when units is set.
func (v ValueWithUnits) Format(units bool) string {
	var s string
	switch value := v.Value.(type) {
	case nil:
		s = ""
	case float64:
		s = strconv.FormatFloat(value, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	default:
		s = fmt.Sprint(value)
	}
	if units && v.Unit != "" {
		return s + " " + v.Unit
	}
	return s
}

func (v ValueWithUnits) String() string {
	return v.Format(true)
}

type valueJSON struct {
	Value interface{} `json:"value"`
	Unit  *string     `json:"unit"`
}

// MarshalJSON always emits both fields; a missing unit is null.
func (v ValueWithUnits) MarshalJSON() ([]byte, error) {
	out := valueJSON{Value: v.Value}
	if v.Unit != "" {
		unit := v.Unit
		out.Unit = &unit
	}
	return json.Marshal(out)
}

func (v *ValueWithUnits) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = ValueWithUnits{Value: in.Value}
	if in.Unit != nil {
		v.Unit = *in.Unit
	}
	return nil
}
