// Package timex provides a time.Duration wrapper that can be read from JSON
// config files, environment variables and flags.
//
// A bare integer is interpreted as milliseconds (the unit the token lifetime
// has always been configured in); anything else must be accepted by
// time.ParseDuration, e.g. "24h" or "90m".
package timex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Duration struct {
	time.Duration
}

// Parse converts s into a Duration using the rules described in the package
// documentation.
func Parse(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Duration{}, fmt.Errorf("timex: empty duration")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration{time.Duration(ms) * time.Millisecond}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("timex: %w", err)
	}
	return Duration{d}, nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value) * time.Millisecond
		return nil
	case string:
		parsed, err := Parse(value)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("timex: invalid duration %s", string(b))
	}
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := Parse(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Set and String let a Duration be used with flag.Var.
func (d *Duration) Set(value string) error {
	return d.Decode(value)
}
