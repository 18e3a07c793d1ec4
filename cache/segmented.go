// Package cache implements a generic, lazily-produced sliding segment
// cache (SegmentedCache) and its specialisation over a detector bank's
// magnitude stream (DetectorCache).
package cache

import (
	"errors"
	"fmt"
)

// Errors returned by SegmentedCache.Get and DetectorCache's accessors
// (§4.6).
var (
	ErrNegativeIndex   = errors.New("cache: negative index")
	ErrExpiredIndex    = errors.New("cache: index before the cache's retained window")
	ErrIndexOutOfRange = errors.New("cache: index past the produced data")
)

// Producer supplies new segments on demand. Generate writes up to L
// elements into out (L is the cache's configured segment length) starting
// at the given origin, and returns how many it actually produced. More
// reports whether another call to Generate would yield any data.
type Producer[T any] interface {
	Generate(out []T, origin int) (produced int)
	More() bool
}

// segment is one fixed-capacity, lazily-filled block of the cache.
type segment[T any] struct {
	origin   int
	data     []T
	produced int
}

// SegmentedCache is a sliding window over an unbounded, lazily-produced
// sequence: at most M segments of L elements each are retained at any
// time, and requesting an index before the retained window fails rather
// than re-running the producer (§4.6).
type SegmentedCache[T any] struct {
	segLen      int
	maxSegments int
	producer    Producer[T]

	segments   []segment[T]
	baseOrigin int
}

// New constructs a SegmentedCache with segment length segLen and at most
// maxSegments retained segments, pulling from producer.
func New[T any](segLen, maxSegments int, producer Producer[T]) *SegmentedCache[T] {
	return &SegmentedCache[T]{
		segLen:      segLen,
		maxSegments: maxSegments,
		producer:    producer,
	}
}

// Get returns the element at index i, producing new segments as needed
// (§4.6 get contract).
func (c *SegmentedCache[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 {
		return zero, fmt.Errorf("%w: %d", ErrNegativeIndex, i)
	}
	if i < c.baseOrigin {
		return zero, fmt.Errorf("%w: %d < %d", ErrExpiredIndex, i, c.baseOrigin)
	}

	for !c.covers(i) {
		origin := c.baseOrigin + len(c.segments)*c.segLen
		data := make([]T, c.segLen)
		produced := c.producer.Generate(data, origin)
		c.segments = append(c.segments, segment[T]{origin: origin, data: data, produced: produced})
		if len(c.segments) > c.maxSegments {
			c.segments = c.segments[1:]
			c.baseOrigin += c.segLen
		}
		if produced == 0 && !c.producer.More() {
			break
		}
	}

	seg, localOffset, ok := c.find(i)
	if !ok {
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if localOffset >= seg.produced {
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return seg.data[localOffset], nil
}

// covers reports whether i lies before the end of the last retained
// segment, i.e. within some retained segment's range (Get has already
// rejected i < baseOrigin). An i past that end returns false, so Get's
// loop creates another segment.
func (c *SegmentedCache[T]) covers(i int) bool {
	if len(c.segments) == 0 {
		return false
	}
	last := c.segments[len(c.segments)-1]
	return i < last.origin+c.segLen
}

func (c *SegmentedCache[T]) find(i int) (segment[T], int, bool) {
	for _, s := range c.segments {
		if i >= s.origin && i < s.origin+c.segLen {
			return s, i - s.origin, true
		}
	}
	return segment[T]{}, 0, false
}

// BaseOrigin returns the smallest index the cache currently retains.
func (c *SegmentedCache[T]) BaseOrigin() int { return c.baseOrigin }

// SegmentLen returns the configured segment length L.
func (c *SegmentedCache[T]) SegmentLen() int { return c.segLen }

// SegmentCount returns the number of segments currently retained.
func (c *SegmentedCache[T]) SegmentCount() int { return len(c.segments) }
