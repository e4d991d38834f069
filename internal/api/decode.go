package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeBody reads an optional JSON object into v. An empty body leaves v
// at its zero value.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// text accepts a JSON string, number or boolean and keeps its textual form,
// so {"pin": 1234} and {"pin": "1234"} decode alike.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = text(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = text(fmt.Sprint(b))
		return nil
	}
	return fmt.Errorf("expected a string or number")
}

func (t text) String() string { return strings.TrimSpace(string(t)) }

// number is an optional numeric field that accepts JSON numbers and numeric
// strings. Set is false when the field was absent or null; Valid is false
// when it was present but not a finite number.
type number struct {
	Value decimal.Decimal
	Set   bool
	Valid bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = number{}
		return nil
	}
	n.Set = true
	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		n.Valid = false
		return nil
	}
	n.Value, n.Valid = d, true
	return nil
}

// maxWhole bounds wholeNumber so the conversion never wraps.
var maxWhole = decimal.NewFromInt(1 << 31)

// wholeNumber converts n to an int, requiring an integral value.
func (n number) wholeNumber() (int, bool) {
	if !n.Valid || !n.Value.IsInteger() || n.Value.Abs().GreaterThanOrEqual(maxWhole) {
		return 0, false
	}
	return int(n.Value.IntPart()), true
}
