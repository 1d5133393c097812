package project

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Digest - фиксированный 256 битный хеш содержимого юнита.
type Digest [32]byte

// Sum hashes raw content.
func Sum(content []byte) Digest {
	return Digest(blake3.Sum256(content))
}

// Combine строит хеш юнита: H( content || dep1 || dep2 ... ).
// Порядок deps должен быть детерминированным (вызывающий сортирует зависимости).
func Combine(content Digest, deps ...Digest) Digest {
	h := blake3.New(32, nil)
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first n hex characters of the digest.
func (d Digest) Short(n int) string {
	s := d.String()
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}
