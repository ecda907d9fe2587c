package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	xxhash "github.com/OneOfOne/xxhash"
	xxhashv2 "github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-metro"
	"golang.org/x/crypto/blake2b"

	"github.com/depotline/connector-basic/cmn/cos"
)

type algorithm struct {
	name, ext string
	newHash   func() hash.Hash
}

func (a algorithm) Name() string      { return a.name }
func (a algorithm) Extension() string { return a.ext }
func (a algorithm) New() hash.Hash    { return a.newHash() }

// metroHash64 adapts dgryski/go-metro's one-shot Hash64 into a streaming
// hash.Hash by buffering; metro has no incremental API.
type metroHash64 struct {
	buf []byte
}

func newMetroHash64() hash.Hash { return &metroHash64{} }

func (m *metroHash64) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}
func (m *metroHash64) Sum(b []byte) []byte {
	sum := metro.Hash64(m.buf, 0)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(sum >> (8 * (7 - i)))
	}
	return append(b, out...)
}
func (m *metroHash64) Reset()         { m.buf = m.buf[:0] }
func (m *metroHash64) Size() int      { return 8 }
func (m *metroHash64) BlockSize() int { return 1 }

// Builtin is the registry of checksum algorithms the connector ships with,
// for use when an external layout does not supply its own
// algorithmFactories() (spec.md §6, Layout contract).
var Builtin = []cos.ChecksumAlgorithm{
	algorithm{name: "SHA-1", ext: "sha1", newHash: sha1.New},
	algorithm{name: "SHA-256", ext: "sha256", newHash: sha256.New},
	algorithm{name: "MD5", ext: "md5", newHash: md5.New},
	algorithm{name: "XXH64", ext: "xxhash", newHash: func() hash.Hash { return xxhash.New64() }},
	algorithm{name: "XXH3", ext: "xxh3", newHash: func() hash.Hash { return xxhashv2.New() }},
	algorithm{name: "METRO", ext: "metro", newHash: newMetroHash64},
	algorithm{name: "BLAKE2b-256", ext: "blake2b256", newHash: mustBlake2b256},
}

func mustBlake2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for a bad key, and we pass nil
		panic(err)
	}
	return h
}

// ByName finds a builtin algorithm by its display name, or nil.
func ByName(name string) cos.ChecksumAlgorithm {
	for _, a := range Builtin {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
