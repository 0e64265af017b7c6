package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Snowflake is a chat platform identifier. It is always written as a JSON
// string but older documents stored message, channel and host ids as numbers,
// so both forms are accepted when reading.
type Snowflake string

// String returns the identifier as a plain string.
func (s Snowflake) String() string {
	return string(s)
}

// UnmarshalJSON accepts "123", 123 and null.
func (s *Snowflake) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Snowflake(str)
		return nil
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return fmt.Errorf("models: invalid snowflake %s", b)
		}
	}
	*s = Snowflake(b)
	return nil
}
