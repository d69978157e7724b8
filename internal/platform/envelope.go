package platform

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is one loosely typed envelope field. The backend sends status as a
// number on some endpoints and as a string on others, so fields keep their
// raw JSON and are interpreted on demand.
type Value struct {
	raw json.RawMessage
}

// Present reports whether the field exists and is not null
func (v Value) Present() bool {
	return len(v.raw) > 0 && string(v.raw) != "null"
}

// Truthy reports whether the field is present and not a zero value
// (null, "", 0 or false).
func (v Value) Truthy() bool {
	if !v.Present() {
		return false
	}
	switch s := string(v.raw); s {
	case `""`, "false":
		return false
	default:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	}
}

// String renders the field as display text. Strings are unquoted; numbers,
// booleans, arrays and objects keep their JSON form.
func (v Value) String() string {
	if !v.Present() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, v.raw); err == nil {
		return compact.String()
	}
	return string(v.raw)
}

// Int returns the field as an integer. Only JSON numbers qualify; a string
// such as "401" does not.
func (v Value) Int() (int, bool) {
	if !v.Present() {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(v.raw), 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Envelope is the decoded response body. Every field is optional and any
// combination may appear.
type Envelope struct {
	Status     Value
	Message    Value
	Error      Value
	HTTPStatus Value
	// Data is the payload of enveloped responses ({"data": ...}).
	Data json.RawMessage
	// Raw is the undecoded body. It is empty for binary downloads.
	Raw []byte
	// IsObject reports whether the body was a JSON object.
	IsObject bool
}

// DecodeEnvelope parses body leniently. It never fails: bodies that are not
// JSON objects only populate Raw.
func DecodeEnvelope(body []byte) Envelope {
	env := Envelope{Raw: body}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return env
	}

	env.IsObject = true
	env.Status = Value{fields["status"]}
	env.Message = Value{fields["message"]}
	env.Error = Value{fields["error"]}
	env.HTTPStatus = Value{fields["httpStatus"]}
	env.Data = fields["data"]
	return env
}

// EmbeddedStatus returns the numeric status field, if any
func (e Envelope) EmbeddedStatus() (int, bool) {
	return e.Status.Int()
}

// Source tells which part of an exchange a display message came from
type Source int

const (
	SourceNone Source = iota
	SourceStatus
	SourceMessage
	SourceRawBody
	SourceTransport
)

func (s Source) String() string {
	switch s {
	case SourceStatus:
		return "status"
	case SourceMessage:
		return "message"
	case SourceRawBody:
		return "body"
	case SourceTransport:
		return "transport"
	default:
		return "none"
	}
}

// Message is the text shown to the user for an exchange
type Message struct {
	Text   string
	Source Source
}

// Empty reports whether no message could be extracted
func (m Message) Empty() bool {
	return m.Source == SourceNone
}

// ExtractMessage picks the display message in fixed priority order:
// the status field, then the message field, then the raw body, then the
// transport message.
//
// Preferring status over message means {"status": 400, "message": "Bad
// input"} displays "400". That ordering is the established behavior of the
// portal and is kept as is.
func ExtractMessage(env Envelope, transport string) Message {
	switch {
	case env.Status.Truthy():
		return Message{Text: env.Status.String(), Source: SourceStatus}
	case env.Message.Truthy():
		return Message{Text: env.Message.String(), Source: SourceMessage}
	case len(bytes.TrimSpace(env.Raw)) > 0:
		return Message{Text: strings.TrimSpace(string(env.Raw)), Source: SourceRawBody}
	case transport != "":
		return Message{Text: transport, Source: SourceTransport}
	default:
		return Message{}
	}
}
