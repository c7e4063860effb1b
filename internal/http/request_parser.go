// This file implements utilities for parsing request bodies and query
// parameters into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gymdesk/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown fields
// and trailing data. Decoding failures are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", core.ErrInvalidInput)
	}
	return nil
}

// ParseDateParam reads a YYYY-MM-DD query parameter, defaulting to the
// calendar day of now.
func ParseDateParam(q url.Values, key string, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.DateOf(now), nil
	}
	return core.ParseDate(v)
}

// ParsePeriodParam reads a YYYY-MM query parameter, defaulting to def.
func ParsePeriodParam(q url.Values, key string, def core.PeriodKey) (core.PeriodKey, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	return core.ParsePeriodKey(v)
}

// ParseYearParam reads a year query parameter, defaulting to now's year.
func ParseYearParam(q url.Values, key string, now time.Time) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, v)
	}
	return y, nil
}

// ParseBoolParam accepts the strconv.ParseBool forms; absent means false.
func ParseBoolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", core.ErrInvalidInput, key)
	}
	return b, nil
}
