// Package checksum implements the streaming, multi-algorithm digest
// calculator described in spec.md §4.1: primed at a resume offset by
// reading bytes already on disk, then fed the newly streamed bytes, and
// read back as a per-algorithm map of hex digest or sticky error.
package checksum

import (
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/depotline/connector-basic/cmn/cos"
)

const primeBufSize = 64 * 1024

// Result is the outcome of a single algorithm: either a lowercase hex digest
// or the error that made the digest unusable.
type Result struct {
	Hex string
	Err error
}

type digestState struct {
	alg cos.ChecksumAlgorithm
	h   hash.Hash
	err error
}

// Calculator accumulates one digest per distinct algorithm name over a
// stream of bytes, primed from a data file's leading offset.
type Calculator struct {
	dataFile string
	states   []*digestState
}

// New returns a Calculator over the distinct algorithms, or nil if
// algorithms is empty (spec.md §4.1).
func New(dataFile string, algorithms []cos.ChecksumAlgorithm) *Calculator {
	if len(algorithms) == 0 {
		return nil
	}
	c := &Calculator{dataFile: dataFile}
	seen := make(map[string]bool, len(algorithms))
	for _, a := range algorithms {
		if seen[a.Name()] {
			continue
		}
		seen[a.Name()] = true
		c.states = append(c.states, &digestState{alg: a, h: a.New()})
	}
	return c
}

// Prime resets all digests, then, if offset > 0, reads exactly offset bytes
// from the data file starting at position 0 into the digests. A file
// shorter than offset records an I/O error against every digest.
func (c *Calculator) Prime(offset int64) {
	if c == nil {
		return
	}
	for _, s := range c.states {
		s.h = s.alg.New()
		s.err = nil
	}
	if offset <= 0 {
		return
	}

	f, err := os.Open(c.dataFile)
	if err != nil {
		c.setErrAll(err)
		return
	}
	defer f.Close()

	buf := make([]byte, primeBufSize)
	var read int64
	for read < offset {
		want := int64(len(buf))
		if remain := offset - read; remain < want {
			want = remain
		}
		n, rerr := f.Read(buf[:want])
		if n > 0 {
			c.Update(buf[:n])
			read += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			c.setErrAll(rerr)
			return
		}
	}
	if read < offset {
		c.setErrAll(io.ErrUnexpectedEOF)
	}
}

// Update feeds bytes to every non-errored digest. It never mutates p.
func (c *Calculator) Update(p []byte) {
	if c == nil {
		return
	}
	for _, s := range c.states {
		if s.err != nil {
			continue
		}
		_, _ = s.h.Write(p) // hash.Hash.Write never errors
	}
}

// Finish returns, per algorithm name, the current lowercase hex digest or
// the sticky error. Idempotent: callable any number of times.
func (c *Calculator) Finish() map[string]Result {
	out := make(map[string]Result)
	if c == nil {
		return out
	}
	for _, s := range c.states {
		if s.err != nil {
			out[s.alg.Name()] = Result{Err: s.err}
			continue
		}
		out[s.alg.Name()] = Result{Hex: hex.EncodeToString(s.h.Sum(nil))}
	}
	return out
}

// Reset reprimes at offset 0; idempotent.
func (c *Calculator) Reset() {
	c.Prime(0)
}

func (c *Calculator) setErrAll(err error) {
	for _, s := range c.states {
		s.err = err
	}
}
