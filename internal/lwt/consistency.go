package lwt

import (
	"fmt"
	"strings"
)

// Consistency names a replica agreement level. Backends translate it into
// their own setting (a CQL consistency level, a Couchbase durability level).
type Consistency string

const (
	Any         Consistency = "ANY"
	One         Consistency = "ONE"
	Two         Consistency = "TWO"
	Three       Consistency = "THREE"
	Quorum      Consistency = "QUORUM"
	All         Consistency = "ALL"
	LocalQuorum Consistency = "LOCAL_QUORUM"
	EachQuorum  Consistency = "EACH_QUORUM"
	LocalOne    Consistency = "LOCAL_ONE"
)

var consistencies = []Consistency{Any, One, Two, Three, Quorum, All, LocalQuorum, EachQuorum, LocalOne}

// ParseConsistency parses a level name, ignoring case and surrounding space.
func ParseConsistency(s string) (Consistency, error) {
	c := Consistency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range consistencies {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid consistency level %q", s)
}

// UnmarshalText lets env and flag parsers decode levels directly.
func (c *Consistency) UnmarshalText(text []byte) error {
	parsed, err := ParseConsistency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Consistency) String() string {
	return string(c)
}
