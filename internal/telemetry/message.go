// Package telemetry defines the JSON document published for every reading.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// TimestampLayout renders UTC timestamps with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type Metadata struct {
	WarningThreshold  float64 `json:"warning_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
}

// Message is the body of one published reading.
type Message struct {
	Value     float64  `json:"value"`
	Unit      string   `json:"unit"`
	Timestamp string   `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
}

// New builds a message stamped with ts in UTC.
func New(value float64, unit string, ts time.Time, warning, critical float64) Message {
	return Message{
		Value:     value,
		Unit:      unit,
		Timestamp: FormatTimestamp(ts),
		Metadata: Metadata{
			WarningThreshold:  warning,
			CriticalThreshold: critical,
		},
	}
}

func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// Marshal encodes the message as UTF-8 JSON.
func (m Message) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal telemetry: %w", err)
	}
	return data, nil
}

// wireMessage detects missing fields on decode.
type wireMessage struct {
	Value     *float64  `json:"value"`
	Unit      *string   `json:"unit"`
	Timestamp *string   `json:"timestamp"`
	Metadata  *Metadata `json:"metadata"`
}

// Decode parses a published payload and its ISO-8601 timestamp.
func Decode(payload []byte) (Message, time.Time, error) {
	var w wireMessage
	if err := json.Unmarshal(payload, &w); err != nil {
		return Message{}, time.Time{}, fmt.Errorf("decode telemetry: %w", err)
	}

	var errs []error
	if w.Value == nil {
		errs = append(errs, errors.New("value is required"))
	}
	if w.Unit == nil {
		errs = append(errs, errors.New("unit is required"))
	}
	if w.Timestamp == nil {
		errs = append(errs, errors.New("timestamp is required"))
	}
	if w.Metadata == nil {
		errs = append(errs, errors.New("metadata is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return Message{}, time.Time{}, fmt.Errorf("invalid telemetry: %w", err)
	}

	ts, err := iso8601.ParseString(*w.Timestamp)
	if err != nil {
		return Message{}, time.Time{}, fmt.Errorf("invalid telemetry timestamp %q: %w", *w.Timestamp, err)
	}

	return Message{
		Value:     *w.Value,
		Unit:      *w.Unit,
		Timestamp: *w.Timestamp,
		Metadata:  *w.Metadata,
	}, ts.UTC(), nil
}
