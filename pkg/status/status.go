// Package status defines the severity levels and status records that flow
// through the planning and compilation pipeline. Errors never abort a run;
// they attach to the plan node where they occur and accumulate.
package status

import "fmt"

// Level is the severity of a Status.
type Level int

// Severity levels, lowest to highest.
const (
	OK Level = iota
	WARNING
	ERROR
	FATAL
)

// String renders the level's name.
func (l Level) String() string {
	switch l {
	case OK:
		return "OK"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Status is a level plus a human-readable description.
type Status struct {
	Level       Level
	Description string
}

// New builds a Status with a formatted description.
func New(level Level, format string, args ...interface{}) Status {
	return Status{Level: level, Description: fmt.Sprintf(format, args...)}
}

// OKStatus is the single success status a node carries when it has no errors.
func OKStatus() Status {
	return Status{Level: OK, Description: "ok"}
}

// List is an ordered collection of statuses attached to one plan node.
type List []Status

// HasLevel reports whether any status in the list is at least the given level.
func (l List) HasLevel(level Level) bool {
	for _, s := range l {
		if s.Level >= level {
			return true
		}
	}
	return false
}

// HasErrors reports whether the list contains an ERROR or FATAL status.
func (l List) HasErrors() bool {
	return l.HasLevel(ERROR)
}

// HasFatal reports whether the list contains a FATAL status.
func (l List) HasFatal() bool {
	return l.HasLevel(FATAL)
}

// Errors returns only the ERROR and FATAL entries, in order.
func (l List) Errors() List {
	out := List{}
	for _, s := range l {
		if s.Level >= ERROR {
			out = append(out, s)
		}
	}
	return out
}

// Counts tallies statuses by level, used for session summaries.
type Counts struct {
	OK, Warning, Error, Fatal int
}

// Add folds a list into running counts.
func (c *Counts) Add(l List) {
	if len(l) == 0 {
		return
	}
	for _, s := range l {
		switch s.Level {
		case OK:
			c.OK++
		case WARNING:
			c.Warning++
		case ERROR:
			c.Error++
		case FATAL:
			c.Fatal++
		}
	}
}
