package rpc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/fan"
)

// paramLimit keeps float to int conversion well defined; anything beyond it
// is clamped by the fan state anyway.
const paramLimit = 1 << 30

// maxID bounds accepted request ids; larger values are treated as absent
const maxID = math.MaxInt32

// DecodeRequest parses a command body. Fields of the wrong type fall back to
// their defaults: a missing or non-numeric id yields NoID and a non-string
// method yields "". Only bodies that are not JSON objects are rejected.
func DecodeRequest(body []byte) (Request, error) {
	errFactory := errors.New()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Request{}, errFactory.Wrap(ErrDecodeRequest, err)
	}
	if fields == nil {
		return Request{}, errFactory.WithMessage(ErrDecodeRequest, "request body is not an object")
	}

	req := Request{
		ID:     decodeID(fields["id"]),
		Params: fields["params"],
	}
	if raw, ok := fields["method"]; ok {
		var method string
		if err := json.Unmarshal(raw, &method); err == nil {
			req.Method = method
		}
	}

	return req, nil
}

func decodeID(raw json.RawMessage) int {
	if len(raw) == 0 {
		return NoID
	}

	var id *float64
	if err := json.Unmarshal(raw, &id); err != nil || id == nil {
		return NoID
	}
	if *id < 0 || *id > maxID {
		return NoID
	}

	return int(math.Trunc(*id))
}

// ParamInt interprets command params as an integer. Numbers are truncated,
// numeric strings are parsed, booleans map to 1 and 0; anything else is 0.
func ParamInt(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}

	switch p := v.(type) {
	case float64:
		return truncate(p)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0
		}
		return truncate(f)
	case bool:
		if p {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func truncate(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f > paramLimit:
		return paramLimit
	case f < -paramLimit:
		return -paramLimit
	default:
		return int(math.Trunc(f))
	}
}

// Dispatch executes req against the fan controller
func Dispatch(ctl fan.Controller, req Request) Response {
	resp := Response{ID: req.ID, Method: req.Method}

	switch req.Method {
	case MethodSetValue:
		resp.Result = ctl.Set(ParamInt(req.Params))
	case MethodGetValue:
		resp.Result = ctl.Get()
	default:
		resp.Result = 0
	}

	return resp
}

// MarshalJSON encodes the reply body, keyed by the request method
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{r.Method: r.Result})
}
