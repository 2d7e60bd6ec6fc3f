/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package protocol

import (
	"errors"
)

// MaxFrame is the ceiling on the buffered size of one frame. A stream
// that grows past it without completing an object is broken and the
// connection must be dropped.
const MaxFrame = 64 * 1024

// ErrFrameTooLarge is returned by Feed when MaxFrame is exceeded.
var ErrFrameTooLarge = errors.New("frame exceeds buffer ceiling")

// Framer splits a byte stream into complete top-level JSON objects.
// Scan state survives across Feed calls. Brace depth is tracked with
// awareness of string quoting and escapes, so braces inside string
// values do not end an object early. Bytes between objects are
// discarded.
type Framer struct {
	buf      []byte
	pos      int // scan resume offset within buf
	start    int // offset of the current object's opening brace, -1 outside
	depth    int
	inString bool
	escaped  bool
}

// NewFramer returns a Framer ready to consume a stream.
func NewFramer() *Framer {
	return &Framer{start: -1}
}

// Pending reports how many bytes are buffered waiting for an object to
// complete.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Feed appends a chunk and returns every frame it completes, in order.
// On ErrFrameTooLarge the framer is no longer usable.
func (f *Framer) Feed(p []byte) ([][]byte, error) {
	f.buf = append(f.buf, p...)
	var frames [][]byte
	for f.pos < len(f.buf) {
		c := f.buf[f.pos]
		if f.inString {
			switch {
			case f.escaped:
				f.escaped = false
			case c == '\\':
				f.escaped = true
			case c == '"':
				f.inString = false
			}
			f.pos++
			continue
		}
		switch c {
		case '"':
			// Quoting only matters inside an object; outside we are
			// just looking for the next opening brace.
			if f.depth > 0 {
				f.inString = true
			}
		case '{':
			if f.depth == 0 {
				f.start = f.pos
			}
			f.depth++
		case '}':
			if f.depth > 0 {
				f.depth--
				if f.depth == 0 {
					frame := make([]byte, f.pos+1-f.start)
					copy(frame, f.buf[f.start:f.pos+1])
					frames = append(frames, frame)
					f.buf = append(f.buf[:0], f.buf[f.pos+1:]...)
					f.pos = 0
					f.start = -1
					continue
				}
			}
		}
		f.pos++
	}
	// Discard anything that cannot be part of a future object.
	if f.start == -1 {
		f.buf = f.buf[:0]
		f.pos = 0
	} else if f.start > 0 {
		f.buf = append(f.buf[:0], f.buf[f.start:]...)
		f.pos -= f.start
		f.start = 0
	}
	if len(f.buf) > MaxFrame {
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}
