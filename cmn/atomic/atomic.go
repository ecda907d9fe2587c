// Package atomic provides typed wrappers over sync/atomic: small value
// types instead of bare int32/int64 fields sprinkled with atomic.*.
package atomic

import "sync/atomic"

// Bool is an atomic boolean.
type Bool struct{ v int32 }

func (b *Bool) Load() bool { return atomic.LoadInt32(&b.v) != 0 }

func (b *Bool) Store(val bool) {
	var i int32
	if val {
		i = 1
	}
	atomic.StoreInt32(&b.v, i)
}

// CAS attempts an atomic compare-and-swap, returning whether it succeeded.
func (b *Bool) CAS(old, new bool) bool {
	var oi, ni int32
	if old {
		oi = 1
	}
	if new {
		ni = 1
	}
	return atomic.CompareAndSwapInt32(&b.v, oi, ni)
}

// Int32 is an atomic int32.
type Int32 struct{ v int32 }

func (i *Int32) Load() int32     { return atomic.LoadInt32(&i.v) }
func (i *Int32) Store(val int32) { atomic.StoreInt32(&i.v, val) }
func (i *Int32) Inc() int32      { return atomic.AddInt32(&i.v, 1) }
func (i *Int32) Dec() int32      { return atomic.AddInt32(&i.v, -1) }
func (i *Int32) Add(d int32) int32 { return atomic.AddInt32(&i.v, d) }

// Int64 is an atomic int64.
type Int64 struct{ v int64 }

func (i *Int64) Load() int64     { return atomic.LoadInt64(&i.v) }
func (i *Int64) Store(val int64) { atomic.StoreInt64(&i.v, val) }
func (i *Int64) Inc() int64      { return atomic.AddInt64(&i.v, 1) }
func (i *Int64) Dec() int64      { return atomic.AddInt64(&i.v, -1) }
func (i *Int64) Add(d int64) int64 { return atomic.AddInt64(&i.v, d) }
