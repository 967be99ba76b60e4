package domain

import (
	"errors"
	"strconv"
)

// ByteRange is an inclusive byte window within a resource of known total
// size. End is meaningful only when HasEnd is set; without it the window runs
// to the final byte.
type ByteRange struct {
	Start  int64
	End    int64
	HasEnd bool
}

// Validate checks the window against the resource size:
// 0 <= Start <= End < size.
func (r ByteRange) Validate(size int64) error {
	if r.Start < 0 {
		return errors.New("range start must not be negative")
	}
	if r.Start >= size {
		return errors.New("range start beyond resource size")
	}
	if r.HasEnd {
		if r.End < r.Start {
			return errors.New("range end before start")
		}
		if r.End >= size {
			return errors.New("range end beyond resource size")
		}
	}
	return nil
}

// EffectiveEnd resolves the inclusive end offset, substituting the final byte
// when no explicit end was supplied.
func (r ByteRange) EffectiveEnd(size int64) int64 {
	if r.HasEnd {
		return r.End
	}
	return size - 1
}

// Length is the number of bytes the window covers.
func (r ByteRange) Length(size int64) int64 {
	return r.EffectiveEnd(size) - r.Start + 1
}

// HeaderValue renders the upstream Range header. An unbounded window keeps
// the open form ("bytes=100-") exactly as the client supplied it.
func (r ByteRange) HeaderValue() string {
	v := "bytes=" + strconv.FormatInt(r.Start, 10) + "-"
	if r.HasEnd {
		v += strconv.FormatInt(r.End, 10)
	}
	return v
}
