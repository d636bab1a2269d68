// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package decoder turns raw enriched-event records into typed events and
// extracts the player level sightings carried in their contexts.
//
// A record is a single tab-separated line whose columns follow
// EnrichedEventSchema. Empty columns are omitted from the result. Decoding
// never stops at the first bad column: every conversion failure is collected
// into one *DecodeError.
package decoder

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Event is a decoded record keyed by field name. Structured columns are
// expanded into one key per normalized schema name.
type Event map[string]interface{}

// String returns a string field, or "" when the field is absent or not a string.
func (e Event) String(name string) string {
	s, _ := e[name].(string)
	return s
}

// Decoder converts records laid out according to a fixed schema.
type Decoder struct {
	schema     []Field
	geoEnabled bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSchema replaces the column layout. Geo derivation is disabled for
// layouts shorter than the default coordinate columns.
func WithSchema(schema []Field) Option {
	return func(d *Decoder) {
		d.schema = schema
	}
}

// WithoutGeoLocation disables the derived geo_location field.
func WithoutGeoLocation() Option {
	return func(d *Decoder) {
		d.geoEnabled = false
	}
}

// New returns a Decoder for EnrichedEventSchema.
func New(opts ...Option) *Decoder {
	d := &Decoder{schema: EnrichedEventSchema, geoEnabled: true}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.schema) <= longitudeIndex {
		d.geoEnabled = false
	}
	return d
}

// Arity returns the number of columns a record must have.
func (d *Decoder) Arity() int {
	return len(d.schema)
}

// Decode converts one record. On failure the returned error is a *DecodeError.
func (d *Decoder) Decode(record []byte) (Event, error) {
	columns := bytes.Split(record, []byte{'\t'})
	if len(columns) != len(d.schema) {
		return nil, &DecodeError{Errors: []FieldError{{
			Message: fmt.Sprintf("expected %d fields, received %d fields", len(d.schema), len(columns)),
		}}}
	}

	out := make(Event, len(d.schema)/2)
	var errs []FieldError

	if d.geoEnabled && len(columns[latitudeIndex]) > 0 && len(columns[longitudeIndex]) > 0 {
		out["geo_location"] = string(columns[latitudeIndex]) + "," + string(columns[longitudeIndex])
	}

	for i, field := range d.schema {
		raw := string(columns[i])
		if raw == "" {
			continue
		}
		if err := convert(out, field, raw); err != nil {
			errs = append(errs, *err)
		}
	}

	if len(errs) > 0 {
		return nil, &DecodeError{Errors: errs}
	}
	return out, nil
}

// convert writes the converted column into out, or reports why it could not.
func convert(out Event, field Field, raw string) *FieldError {
	fail := func(format string, args ...interface{}) *FieldError {
		return &FieldError{Field: field.Name, Value: raw, Message: fmt.Sprintf(format, args...)}
	}

	switch field.Kind {
	case KindString:
		out[field.Name] = raw
	case KindInt:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fail("not an integer")
		}
		out[field.Name] = v
	case KindDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fail("not a number")
		}
		out[field.Name] = v
	case KindBool:
		switch raw {
		case "1":
			out[field.Name] = true
		case "0":
			out[field.Name] = false
		default:
			return fail("boolean must be 0 or 1")
		}
	case KindTimestamp:
		out[field.Name] = strings.ReplaceAll(raw, " ", "T") + "Z"
	case KindContexts:
		groups, err := parseContexts(raw)
		if err != nil {
			return fail("%v", err)
		}
		for _, g := range groups {
			out[g.name] = g.payloads
		}
	case KindUnstruct:
		name, payload, err := parseUnstruct(raw)
		if err != nil {
			return fail("%v", err)
		}
		out[name] = payload
	default:
		return fail("unsupported field kind %s", field.Kind)
	}
	return nil
}

// selfDescribing is a {"schema": ..., "data": ...} document.
type selfDescribing struct {
	Schema string          `json:"schema"`
	Data   json.RawMessage `json:"data"`
}

type contextGroup struct {
	name     string
	payloads []interface{}
}

// parseContexts groups context payloads by normalized schema name. Payload
// order within a group follows the input; groups are returned in first-seen order.
func parseContexts(raw string) ([]contextGroup, error) {
	var outer selfDescribing
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return nil, fmt.Errorf("invalid contexts document: %w", err)
	}
	var entries []selfDescribing
	if isAbsent(outer.Data) || json.Unmarshal(outer.Data, &entries) != nil {
		return nil, fmt.Errorf("contexts document has no data array")
	}

	var groups []contextGroup
	index := make(map[string]int)
	for _, entry := range entries {
		name, err := NormalizeSchemaName("contexts", entry.Schema)
		if err != nil {
			return nil, err
		}
		payload, err := decodePayload(entry.Data)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", entry.Schema, err)
		}
		if i, ok := index[name]; ok {
			groups[i].payloads = append(groups[i].payloads, payload)
			continue
		}
		index[name] = len(groups)
		groups = append(groups, contextGroup{name: name, payloads: []interface{}{payload}})
	}
	return groups, nil
}

// parseUnstruct extracts the single self-describing event from an unstruct column.
func parseUnstruct(raw string) (string, interface{}, error) {
	var outer selfDescribing
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return "", nil, fmt.Errorf("invalid unstruct document: %w", err)
	}
	var inner selfDescribing
	if isAbsent(outer.Data) || json.Unmarshal(outer.Data, &inner) != nil {
		return "", nil, fmt.Errorf("unstruct document has no data object")
	}
	if len(inner.Data) == 0 {
		return "", nil, fmt.Errorf("could not extract inner data field from unstructured event")
	}
	name, err := NormalizeSchemaName("unstruct_event", inner.Schema)
	if err != nil {
		return "", nil, err
	}
	payload, err := decodePayload(inner.Data)
	if err != nil {
		return "", nil, err
	}
	return name, payload, nil
}

func isAbsent(data json.RawMessage) bool {
	return len(data) == 0 || string(bytes.TrimSpace(data)) == "null"
}

func decodePayload(data json.RawMessage) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing data")
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	return v, nil
}
