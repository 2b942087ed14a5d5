// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding request bodies and parsing
// query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"household/internal/core"
	"household/internal/storage"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON decodes a single JSON object into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &syntaxErr):
			return badRequest(fmt.Sprintf("malformed JSON at position %d", syntaxErr.Offset))
		case errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("malformed JSON: unexpected end of body")
		case errors.As(err, &typeErr):
			return badRequest(fmt.Sprintf("invalid value for field %q", typeErr.Field))
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequest("unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return badRequest("invalid request body: " + err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// dateValue accepts "YYYY-MM-DD" or RFC 3339 timestamps. Set reports that
// the member was present, so an explicit null can be told from an absent one.
type dateValue struct {
	Set  bool
	Time *time.Time
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
	d.Set = true
	if bytes.Equal(b, []byte("null")) {
		d.Time = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := core.ParseDay(s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	d.Time = &t
	return nil
}

// parseDayParam reads a YYYY-MM-DD query parameter. A missing value
// yields the zero time.
func parseDayParam(query url.Values, key string) (time.Time, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := core.ParseDay(v, time.Local)
	if err != nil {
		return time.Time{}, badRequest(fmt.Sprintf("invalid %s %q: want YYYY-MM-DD", key, v))
	}
	return t, nil
}

// ParseTransactionFilter builds the caller's transaction filter from the
// query. month=YYYY-MM wins over startDate/endDate.
func ParseTransactionFilter(userID string, query url.Values) (storage.TransactionFilter, error) {
	f := storage.TransactionFilter{
		UserID:      userID,
		Category:    sanitizeInput(query.Get("category")),
		Responsavel: sanitizeInput(query.Get("responsavel")),
	}

	if v := sanitizeInput(query.Get("type")); v != "" {
		typ := core.TransactionType(strings.ToLower(v))
		if !typ.Valid() {
			return f, badRequest(fmt.Sprintf("invalid type %q: want income or expense", v))
		}
		f.Type = typ
	}

	if month := sanitizeInput(query.Get("month")); month != "" {
		from, to, err := core.MonthRange(month, time.Local)
		if err != nil {
			return f, badRequest(fmt.Sprintf("invalid month %q: want YYYY-MM", month))
		}
		f.From, f.To = from, to
		return f, nil
	}

	from, err := parseDayParam(query, "startDate")
	if err != nil {
		return f, err
	}
	to, err := parseDayParam(query, "endDate")
	if err != nil {
		return f, err
	}
	if !from.IsZero() {
		f.From = core.StartOfDay(from)
	}
	if !to.IsZero() {
		f.To = core.EndOfDay(to)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, badRequest("endDate is before startDate")
	}
	return f, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizePtr applies sanitizeInput to an optional value.
func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
