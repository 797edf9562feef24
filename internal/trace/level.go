package trace

import (
	"fmt"
	"strings"
)

// Level controls how fine-grained the emitted events are.
type Level uint8

const (
	LevelOff      Level = iota
	LevelDriver         // driver events only
	LevelRegistry       // plus registry operations
	LevelType           // plus per-type construction
	LevelAll            // plus layout walks
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelDriver:
		return "driver"
	case LevelRegistry:
		return "registry"
	case LevelType:
		return "type"
	case LevelAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseLevel is the inverse of Level.String, case-insensitive.
func ParseLevel(s string) (Level, error) {
	for l := LevelOff; l <= LevelAll; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|driver|registry|type|all)", s)
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff || scope == 0 {
		return false
	}
	return uint8(scope) <= uint8(l)
}
