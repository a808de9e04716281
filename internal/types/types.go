// Package types is the wire codec for the tournament server.
//
// Snapshot (GET, JSON array of Django-serialized records):
//
//	[{"model": "tmdb.teammatch", "pk": 7, "fields": {"ring_number": 2, ...}}, ...]
//
// Server -> client push message. Every key is optional and every value is a
// JSON document encoded as a string:
//
//	{"update": "[{\"model\": ..., \"pk\": ..., \"fields\": {...}}]",
//	 "delete": "[{\"model\": ..., \"pk\": ...}]",
//	 "error":  "\"ring 9 does not exist\""}
//
// Client -> server edit, exactly one partial record:
//
//	[{"model": "tmdb.teammatch", "pk": 7, "fields": {"ring_number": 3}}]
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

var (
	ErrMissingModel = errors.New("record has no model")
	ErrBadKey       = errors.New("record has no integer pk")
	ErrBadEnvelope  = errors.New("malformed push message")
)

// WireRecord is one Django-serialized record.
type WireRecord struct {
	Model  string         `json:"model"`
	PK     json.Number    `json:"pk"`
	Fields map[string]any `json:"fields"`
}

func (w WireRecord) Record() (store.Record, error) {
	if strings.TrimSpace(w.Model) == "" {
		return store.Record{}, ErrMissingModel
	}
	pk, err := w.PK.Int64()
	if err != nil {
		return store.Record{}, fmt.Errorf("%w: %s %q", ErrBadKey, w.Model, w.PK)
	}
	return store.NewRecord(store.NormalizeKind(w.Model), pk, w.Fields), nil
}

// DeleteRef names a record to remove. The server sends "model"; "kind" is
// accepted as well.
type DeleteRef struct {
	Kind store.Kind
	PK   int64
}

type wireDelete struct {
	Model string      `json:"model"`
	Kind  string      `json:"kind"`
	PK    json.Number `json:"pk"`
}

// Inbound is a decoded push message.
type Inbound struct {
	Updates  []store.Record
	Deletes  []DeleteRef
	HasError bool
	Error    any
}

type inboundEnvelope struct {
	Update json.RawMessage `json:"update"`
	Delete json.RawMessage `json:"delete"`
	Error  json.RawMessage `json:"error"`
}

// DecodeSnapshot parses the bootstrap payload.
func DecodeSnapshot(data []byte) ([]store.Record, error) {
	var wire []WireRecord
	if err := decode(data, &wire); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return toRecords(wire)
}

// DecodeInbound parses a push message. Nothing is returned unless every key
// present decodes, so a message is applied whole or not at all.
func DecodeInbound(data []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := decode(data, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	var in Inbound
	if present(env.Update) {
		var wire []WireRecord
		if err := decodeNested(env.Update, &wire); err != nil {
			return Inbound{}, fmt.Errorf("%w: update: %v", ErrBadEnvelope, err)
		}
		recs, err := toRecords(wire)
		if err != nil {
			return Inbound{}, fmt.Errorf("%w: update: %v", ErrBadEnvelope, err)
		}
		in.Updates = recs
	}
	if present(env.Delete) {
		var wire []wireDelete
		if err := decodeNested(env.Delete, &wire); err != nil {
			return Inbound{}, fmt.Errorf("%w: delete: %v", ErrBadEnvelope, err)
		}
		for _, d := range wire {
			model := d.Model
			if model == "" {
				model = d.Kind
			}
			if model == "" {
				return Inbound{}, fmt.Errorf("%w: delete: %v", ErrBadEnvelope, ErrMissingModel)
			}
			pk, err := d.PK.Int64()
			if err != nil {
				return Inbound{}, fmt.Errorf("%w: delete: %v %q", ErrBadEnvelope, ErrBadKey, d.PK)
			}
			in.Deletes = append(in.Deletes, DeleteRef{Kind: store.NormalizeKind(model), PK: pk})
		}
	}
	if present(env.Error) {
		var v any
		if err := decodeNested(env.Error, &v); err != nil {
			// an undecodable error string is still worth showing
			v = strings.Trim(string(env.Error), `"`)
		}
		in.HasError = true
		in.Error = v
	}
	return in, nil
}

// ErrorText renders a server-reported error value for an operator alert.
func ErrorText(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case nil:
		return "unknown server error"
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprint(e)
		}
		return string(b)
	}
}

type outboundPatch struct {
	Model  string         `json:"model"`
	PK     int64          `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// EncodePatch builds the one-element edit message for a partial record.
func EncodePatch(kind store.Kind, pk int64, fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return nil, errors.New("empty patch")
	}
	return json.Marshal([]outboundPatch{{Model: kind.Wire(), PK: pk, Fields: fields}})
}

func toRecords(wire []WireRecord) ([]store.Record, error) {
	out := make([]store.Record, 0, len(wire))
	for i, w := range wire {
		rec, err := w.Record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// decodeNested accepts both a JSON string holding a document and the bare
// document itself.
func decodeNested(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		return decode([]byte(inner), v)
	}
	return decode(trimmed, v)
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
