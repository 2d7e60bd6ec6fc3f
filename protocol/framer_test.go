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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramerSingleObject(t *testing.T) {
	f := NewFramer()
	frames, err := f.Feed([]byte(`{"PING":"123"}`))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, `{"PING":"123"}`, string(frames[0]))
	require.Equal(t, 0, f.Pending())
}

func TestFramerConcatenated(t *testing.T) {
	f := NewFramer()
	frames, err := f.Feed([]byte(`{"CMD":"OPEN"}{"CMD":"CLOSE"}{"CMD":"GET_SETTINGS"}`))
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Equal(t, `{"CMD":"CLOSE"}`, string(frames[1]))
}

func TestFramerSplitAcrossFeeds(t *testing.T) {
	f := NewFramer()
	frames, err := f.Feed([]byte(`{"CMD":"SET_HOLD_TIME","hold`))
	require.NoError(t, err)
	require.Empty(t, frames)
	require.NotZero(t, f.Pending())

	frames, err = f.Feed([]byte(`Time":500}`))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, `{"CMD":"SET_HOLD_TIME","holdTime":500}`, string(frames[0]))
}

func TestFramerBytewise(t *testing.T) {
	f := NewFramer()
	payload := []byte(`{"CMD":"GET_DOOR_STATUS","msgId":7}`)
	var got [][]byte
	for _, b := range payload {
		frames, err := f.Feed([]byte{b})
		require.NoError(t, err)
		got = append(got, frames...)
	}
	require.Len(t, got, 1)
	require.Equal(t, payload, got[0])
}

func TestFramerNestedObjects(t *testing.T) {
	f := NewFramer()
	payload := []byte(`{"CMD":"SET_SCHEDULE","schedule":{"index":0,"inStartTime":{"hour":6,"min":0}}}`)
	frames, err := f.Feed(payload)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0])
}

func TestFramerBracesInsideStrings(t *testing.T) {
	f := NewFramer()
	payload := []byte(`{"CMD":"SET_TIMEZONE","tz":"fake{zone}}}"}`)
	frames, err := f.Feed(payload)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0])
}

func TestFramerEscapedQuoteInString(t *testing.T) {
	f := NewFramer()
	payload := []byte(`{"PING":"a\"}b"}`)
	frames, err := f.Feed(payload)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0])
}

func TestFramerDiscardsGarbageBetweenObjects(t *testing.T) {
	f := NewFramer()
	frames, err := f.Feed([]byte("\r\n junk {\"CMD\":\"OPEN\"} more junk "))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, `{"CMD":"OPEN"}`, string(frames[0]))
	require.Equal(t, 0, f.Pending())

	frames, err = f.Feed([]byte(`{"CMD":"CLOSE"}`))
	require.NoError(t, err)
	require.Len(t, frames, 1)
}

func TestFramerOversizeFrame(t *testing.T) {
	f := NewFramer()
	huge := append([]byte(`{"CMD":"`), bytes.Repeat([]byte("x"), MaxFrame)...)
	_, err := f.Feed(huge)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFramerOversizeAfterCompleteFrame(t *testing.T) {
	// A completed object still gets delivered even when trailing bytes
	// blow the ceiling in the same chunk.
	f := NewFramer()
	chunk := append([]byte(`{"CMD":"OPEN"}{"CMD":"`), bytes.Repeat([]byte("y"), MaxFrame)...)
	frames, err := f.Feed(chunk)
	require.ErrorIs(t, err, ErrFrameTooLarge)
	require.Len(t, frames, 1)
	require.Equal(t, `{"CMD":"OPEN"}`, string(frames[0]))
}
