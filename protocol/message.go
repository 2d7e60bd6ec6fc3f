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
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoCommand means the frame carried neither a PING token nor a
// command tag under the CMD or CONFIG key.
var ErrNoCommand = errors.New("frame carries neither PING nor a command tag")

// Request is one decoded frame from a client. The phone app sends the
// command tag under CONFIG, other clients under CMD; both are accepted.
type Request struct {
	// Cmd is the command tag, empty for a PING frame.
	Cmd string
	// Ping is the raw echo token of a PING frame, nil otherwise.
	Ping json.RawMessage
	// MsgID is the raw msgId to echo back, nil when the client sent none.
	MsgID json.RawMessage
	// Raw is the complete frame; schedule payloads decode from it since
	// their fields sit at the top level next to the command tag.
	Raw []byte

	fields map[string]json.RawMessage
}

// ParseRequest decodes a single JSON object frame.
func ParseRequest(frame []byte) (*Request, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	r := &Request{fields: fields, MsgID: fields[FieldMsgID], Raw: frame}
	if token, ok := fields[FieldPing]; ok {
		r.Ping = token
		return r, nil
	}
	for _, carrier := range []string{FieldConfig, FieldCmd} {
		raw, ok := fields[carrier]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &r.Cmd); err != nil {
			return nil, fmt.Errorf("command tag under %q: %w", carrier, err)
		}
		return r, nil
	}
	return nil, ErrNoCommand
}

// Field returns the raw JSON of an argument, if present.
func (r *Request) Field(key string) (json.RawMessage, bool) {
	raw, ok := r.fields[key]
	return raw, ok
}

// StringField decodes a string argument.
func (r *Request) StringField(key string) (string, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// IntField decodes an integer argument.
func (r *Request) IntField(key string) (int, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// Reply is an outgoing message being assembled. Replies and broadcasts
// share the shape: a CMD tag, success and direction, plus payload.
type Reply map[string]interface{}

// NewReply starts a successful reply or broadcast for the given tag.
func NewReply(cmd string) Reply {
	return Reply{
		FieldCmd:       cmd,
		FieldSuccess:   SuccessTrue,
		FieldDirection: DirectionDoorToPhone,
	}
}

// NewPong builds the reply to a PING frame, echoing the opaque token.
func NewPong(token json.RawMessage) Reply {
	r := NewReply(CmdPong)
	r[FieldPong] = token
	return r
}

// Set adds a payload field.
func (r Reply) Set(key string, value interface{}) Reply {
	r[key] = value
	return r
}

// Failure flips the reply to success="false" with a human-readable
// reason.
func (r Reply) Failure(reason string) Reply {
	r[FieldSuccess] = SuccessFalse
	r[FieldReason] = reason
	return r
}

// Echo copies the client's msgId into the reply, verbatim.
func (r Reply) Echo(req *Request) Reply {
	if req != nil && req.MsgID != nil {
		r[FieldMsgID] = req.MsgID
	}
	return r
}

// Marshal serializes the reply. The wire carries no trailing newline.
func (r Reply) Marshal() ([]byte, error) {
	return json.Marshal(map[string]interface{}(r))
}
