package handlers

import (
	"encoding/json"
	"fmt"
)

// FlexID is an identifier that upstream services serialize sometimes as a
// string and sometimes as a bare number. Both decode to the string form
// used in room names.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	return fmt.Errorf("id must be a string or number, got %s", b)
}
