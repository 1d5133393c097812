package tree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"hostgen/internal/project"
)

var ErrEmptyPath = errors.New("tree: unit without path")

// EncodeUnit serialises one unit dump.
func EncodeUnit(u *Unit) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(u); err != nil {
		return nil, fmt.Errorf("tree: encode %s: %w", u.Path, err)
	}
	return buf.Bytes(), nil
}

// DecodeUnit parses one unit dump and records the digest of its bytes.
func DecodeUnit(data []byte) (*Unit, error) {
	var u Unit
	if err := msgpack.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("tree: decode: %w", err)
	}
	if u.Path == "" {
		return nil, ErrEmptyPath
	}
	u.Digest = project.Sum(data)
	return &u, nil
}

// EncodeBundle serialises several units into one file.
func EncodeBundle(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("tree: encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBundle parses a bundle. Each unit's digest covers its own re-encoded
// form, so a unit hashes the same in a bundle and on its own.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("tree: decode bundle: %w", err)
	}
	for _, u := range b.Units {
		if u == nil || u.Path == "" {
			return nil, ErrEmptyPath
		}
		raw, err := EncodeUnit(u)
		if err != nil {
			return nil, err
		}
		u.Digest = project.Sum(raw)
	}
	return &b, nil
}
