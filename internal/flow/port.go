package flow

// Reserved port names, type tags, and config keys.
const (
	// PortHeartbeat is declared on every process by the base and carries
	// one status packet per step.
	PortHeartbeat = "heartbeat"

	// TypeAny matches any port type when checking connections.
	TypeAny = "_any"
	// TypeNone marks a port that never carries actual data.
	TypeNone = "_none"

	// ConfigKeyName holds the process instance name.
	ConfigKeyName = "_name"
	// ConfigKeyType holds the process type tag.
	ConfigKeyType = "_type"

	// DefaultName is the name of a process whose config never set one.
	DefaultName = "(unnamed)"
)

// PortFlag annotates how a port's data may be used.
type PortFlag string

const (
	// FlagOutputConst marks output data that downstream must not modify.
	FlagOutputConst PortFlag = "_const"
	// FlagInputMutable marks an input whose data may be modified in place.
	FlagInputMutable PortFlag = "_mutable"
	// FlagRequired marks a port that must be connected before Init.
	FlagRequired PortFlag = "_required"
)

// PortFlags is a set of port flags.
type PortFlags map[PortFlag]struct{}

// NewPortFlags builds a flag set.
func NewPortFlags(flags ...PortFlag) PortFlags {
	s := make(PortFlags, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}
	return s
}

// Has reports whether f is in the set.
func (s PortFlags) Has(f PortFlag) bool {
	_, ok := s[f]
	return ok
}

// List returns the flags in an unspecified order.
func (s PortFlags) List() []PortFlag {
	out := make([]PortFlag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	return out
}

// PortInfo describes a declared port.
type PortInfo struct {
	Type        string
	Flags       PortFlags
	Description string
}

// ConfInfo describes a declared configuration key.
type ConfInfo struct {
	Default     any
	Description string
}
