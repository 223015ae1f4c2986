package models

import (
	"fmt"
	"strings"
)

// Severity ranks how material a finding is. Lower values are more severe,
// so sorting ascending puts fatal-tier findings first.
type Severity int

const (
	SeverityA Severity = iota + 1 // fatal-tier threshold breach
	SeverityB                     // concerning but survivable
	SeverityC                     // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityA:
		return "A"
	case SeverityB:
		return "B"
	case SeverityC:
		return "C"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid reports whether s is one of A, B, C.
func (s Severity) Valid() bool {
	return s >= SeverityA && s <= SeverityC
}

// MoreSevereThan reports whether s ranks above o.
func (s Severity) MoreSevereThan(o Severity) bool {
	return s < o
}

// ParseSeverity accepts "A", "B" or "C" (case-insensitive).
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "A":
		return SeverityA, nil
	case "B":
		return SeverityB, nil
	case "C":
		return SeverityC, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", v)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
