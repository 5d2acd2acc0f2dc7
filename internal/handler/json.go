package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

// writeJSON encodes a response body with jx.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.ObjEnd()
	})
}

// money writes d as a JSON number with exactly two fractional digits.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

// readObject decodes a JSON object body, calling fn for every field. An
// empty body is treated as an empty object.
func readObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return badRequest("request body too large")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	err = jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	})
	if err != nil {
		var bre *badRequestError
		if errors.As(err, &bre) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// decodeInt accepts an integer encoded as a JSON number or a numeric string.
// ok is false for null.
func decodeInt(d *jx.Decoder, field string) (v int, ok bool, err error) {
	switch d.Next() {
	case jx.Null:
		return 0, false, d.Null()
	case jx.Number:
		v, err := d.Int()
		if err != nil {
			return 0, false, badRequest("%s must be an integer", field)
		}
		return v, true, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false, badRequest("%s must be an integer", field)
		}
		return v, true, nil
	default:
		if err := d.Skip(); err != nil {
			return 0, false, err
		}
		return 0, false, badRequest("%s must be an integer", field)
	}
}

// decodeID accepts an identifier encoded as a JSON string or number.
func decodeID(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		s, err := d.Str()
		return strings.TrimSpace(s), err
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		if err := d.Skip(); err != nil {
			return "", err
		}
		return "", badRequest("%s must be a string", field)
	}
}

func decodeString(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	default:
		if err := d.Skip(); err != nil {
			return "", err
		}
		return "", badRequest("%s must be a string", field)
	}
}

func decodeBool(d *jx.Decoder, field string) (bool, error) {
	if d.Next() != jx.Bool {
		if err := d.Skip(); err != nil {
			return false, err
		}
		return false, badRequest("%s must be a boolean", field)
	}
	return d.Bool()
}

// decodeDecimal accepts a JSON number or a decimal string.
func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = strings.TrimSpace(s)
	default:
		if err := d.Skip(); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, badRequest("%s must be a number", field)
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, badRequest("%s must be a number", field)
	}
	return v, nil
}
