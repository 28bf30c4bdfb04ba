// Package metadata reads and writes the metadata.json sidecar of a dataset
// folder.
//
// The sidecar is shared with an upstream collection stage that owns the
// descriptive fields (id, title, tags, download URLs, ...). A Record keeps
// every top-level field as raw JSON in its original order, so a
// read-modify-write only touches the fields this module sets.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const (
	// FileName is the reserved name of the sidecar inside a dataset folder.
	FileName = "metadata.json"
	// AdaptedFileName is the camelCase copy written by the schema adapter.
	AdaptedFileName = "metadata-cc.json"
)

var (
	ErrMissingSidecar = errors.New("dataset has no metadata sidecar")
	ErrNotObject      = errors.New("metadata is not a JSON object")
)

type field struct {
	key   string
	value json.RawMessage
}

// Record is an ordered JSON object.
type Record struct {
	fields []field
}

func NewRecord() *Record {
	return &Record{}
}

// Parse decodes data leniently. Input that is not valid JSON is repaired
// first (unquoted keys, trailing commas, control characters in strings).
func Parse(data []byte) (*Record, error) {
	r, err := parseObject(data)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, ErrNotObject) {
		return nil, err
	}

	repaired, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return nil, fmt.Errorf("json repair failed: %w (parse error: %v)", rerr, err)
	}
	return parseObject([]byte(repaired))
}

func parseObject(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	r := &Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		r.setRaw(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after metadata object")
	}

	return r, nil
}

// Path returns the sidecar path of the dataset folder dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Read loads the sidecar of the dataset folder dir.
func Read(dir string) (*Record, error) {
	return ReadFile(Path(dir))
}

func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Dir(path), ErrMissingSidecar)
	}
	if err != nil {
		return nil, err
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return r, nil
}

func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		keys = append(keys, f.key)
	}
	return keys
}

func (r *Record) Has(key string) bool {
	return r.index(key) >= 0
}

func (r *Record) Raw(key string) (json.RawMessage, bool) {
	i := r.index(key)
	if i < 0 {
		return nil, false
	}
	return r.fields[i].value, true
}

// Get decodes the field key into out. It reports false if the field is
// absent, leaving out untouched.
func (r *Record) Get(key string, out any) (bool, error) {
	raw, ok := r.Raw(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

// Set replaces the field key in place, or appends it if absent.
func (r *Record) Set(key string, value any) error {
	raw, err := marshal(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	r.setRaw(key, raw)
	return nil
}

func (r *Record) setRaw(key string, raw json.RawMessage) {
	if i := r.index(key); i >= 0 {
		r.fields[i].value = raw
		return
	}
	r.fields = append(r.fields, field{key: key, value: raw})
}

func (r *Record) Delete(keys ...string) {
	kept := r.fields[:0]
	for _, f := range r.fields {
		drop := false
		for _, k := range keys {
			if f.key == k {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	r.fields = kept
}

func (r *Record) index(key string) int {
	for i, f := range r.fields {
		if f.key == key {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the record with four-space indentation. Non-ASCII and
// HTML characters are written as is.
func (r *Record) MarshalJSON() ([]byte, error) {
	if len(r.fields) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, f := range r.fields {
		key, err := marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		value, err := unescape(f.value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
		if err := json.Indent(&buf, value, indent, indent); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
		if i < len(r.fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

const indent = "    "

// unescape re-encodes raw so that \uXXXX escapes of non-ASCII and HTML
// characters are written as the characters themselves. Key order and number
// literals are kept.
func unescape(raw json.RawMessage) (json.RawMessage, error) {
	if !bytes.Contains(raw, []byte(`\u`)) {
		return raw, nil
	}

	type frame struct {
		object bool
		n      int
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var (
		buf   bytes.Buffer
		stack []frame
	)
	separate := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		switch {
		case top.object && top.n%2 == 1:
			buf.WriteByte(':')
		case top.n > 0:
			buf.WriteByte(',')
		}
		top.n++
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch v := tok.(type) {
		case json.Delim:
			if v == '}' || v == ']' {
				buf.WriteByte(byte(v))
				stack = stack[:len(stack)-1]
				continue
			}
			separate()
			buf.WriteByte(byte(v))
			stack = append(stack, frame{object: v == '{'})
		case string:
			separate()
			b, err := marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		case json.Number:
			separate()
			buf.WriteString(v.String())
		case bool:
			separate()
			buf.WriteString(strconv.FormatBool(v))
		case nil:
			separate()
			buf.WriteString("null")
		}
	}

	return buf.Bytes(), nil
}

func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write stores r as the sidecar of the dataset folder dir.
func Write(dir string, r *Record) error {
	return WriteFile(Path(dir), r)
}

// WriteFile replaces path atomically: the record is written to a temporary
// file in the same directory and renamed over path, so readers see either the
// old or the new record.
func WriteFile(path string, r *Record) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(name, filepath.Ext(name))+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// CreateFile writes r to path and fails with os.ErrExist if path already
// exists.
func CreateFile(path string, r *Record) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Update runs a read-modify-write of the sidecar of dir. Nothing is written
// if fn fails.
func Update(dir string, fn func(*Record) error) error {
	r, err := Read(dir)
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	return Write(dir, r)
}
