package flow

import (
	"context"
	"sort"
)

// Process is the public surface of a pipeline node, called by the assembler
// and the scheduler.
//
// Lifecycle: construct with a config, connect edges, Init once, then Step
// repeatedly. Step is not safe to call concurrently on one instance unless
// IsReentrant reports true; the scheduler enforces that. Port and config
// tables are only mutated during construction, before any scheduler
// goroutine sees the process, so queries take no locks.
type Process interface {
	Name() string
	Type() string

	Init() error
	Step(ctx context.Context) error
	IsReentrant() bool

	ConnectInputPort(port string, edge EdgeRef) error
	ConnectOutputPort(port string, edge EdgeRef) error

	InputPorts() []string
	OutputPorts() []string
	InputPortInfo(port string) (PortInfo, error)
	OutputPortInfo(port string) (PortInfo, error)

	AvailableConfig() []string
	ConfigInfo(key string) (ConfInfo, error)

	InputPortEdge(port string) (EdgeRef, error)
	OutputPortEdges(port string) ([]EdgeRef, error)
}

// Hooks is what a concrete process supplies on top of Base. Embed BaseHooks
// and override what the process needs: OnStep for its data processing,
// OnInit for post-connection checks, the Extra* methods to report ports or
// config the process manages outside the declaration tables.
//
// Extra* results are concatenated with the base tables in the public
// queries; on a name collision the hook's info wins.
type Hooks interface {
	OnInit() error
	OnStep(ctx context.Context) error

	// OnConnectInput handles a connect to a port missing from the input
	// table, typically by declaring it and returning true so the base
	// records the edge. Returning false yields a NoSuchPortError.
	OnConnectInput(port string, edge EdgeRef) (bool, error)
	// OnConnectOutput is the output-side counterpart.
	OnConnectOutput(port string, edge EdgeRef) (bool, error)

	ExtraInputPorts() []string
	ExtraOutputPorts() []string
	ExtraInputPortInfo(port string) (PortInfo, bool)
	ExtraOutputPortInfo(port string) (PortInfo, bool)
	ExtraConfigKeys() []string
	ExtraConfigInfo(key string) (ConfInfo, bool)
}

// BaseHooks is the no-op Hooks implementation concrete processes embed.
type BaseHooks struct{}

func (BaseHooks) OnInit() error                                  { return nil }
func (BaseHooks) OnStep(ctx context.Context) error               { return nil }
func (BaseHooks) OnConnectInput(string, EdgeRef) (bool, error)   { return false, nil }
func (BaseHooks) OnConnectOutput(string, EdgeRef) (bool, error)  { return false, nil }
func (BaseHooks) ExtraInputPorts() []string                      { return nil }
func (BaseHooks) ExtraOutputPorts() []string                     { return nil }
func (BaseHooks) ExtraInputPortInfo(string) (PortInfo, bool)     { return PortInfo{}, false }
func (BaseHooks) ExtraOutputPortInfo(string) (PortInfo, bool)    { return PortInfo{}, false }
func (BaseHooks) ExtraConfigKeys() []string                      { return nil }
func (BaseHooks) ExtraConfigInfo(string) (ConfInfo, bool)        { return ConfInfo{}, false }

// Base carries the state machine, catalogs, and edge registry every process
// shares. Concrete processes embed *Base, implement Hooks, and bind
// themselves with BindHooks during construction.
type Base struct {
	name string
	typ  string
	conf *Config

	inputPortTable  map[string]PortInfo
	outputPortTable map[string]PortInfo
	configKeyTable  map[string]ConfInfo

	inputEdges  map[string]EdgeRef
	outputEdges map[string][]EdgeRef

	initialized bool
	complete    bool

	inputSameColor bool
	inputSync      bool
	inputValid     bool

	hbStamp Stamp

	hooks Hooks
}

// NewBase builds the shared process state from conf. It declares the
// reserved config keys and the heartbeat output port, and reads the
// process identity out of conf.
func NewBase(conf *Config) (*Base, error) {
	if conf == nil {
		return nil, &NullConfigError{}
	}

	b := &Base{
		conf:            conf,
		inputPortTable:  make(map[string]PortInfo),
		outputPortTable: make(map[string]PortInfo),
		configKeyTable:  make(map[string]ConfInfo),
		inputEdges:      make(map[string]EdgeRef),
		outputEdges:     make(map[string][]EdgeRef),
		inputSameColor:  true,
		inputSync:       true,
		inputValid:      true,
		hbStamp:         NewStamp(),
		hooks:           BaseHooks{},
	}

	b.configKeyTable[ConfigKeyName] = ConfInfo{
		Default:     DefaultName,
		Description: "The name of the process.",
	}
	b.configKeyTable[ConfigKeyType] = ConfInfo{
		Default:     "",
		Description: "The type of the process.",
	}

	var err error
	if b.name, err = ConfigValue[string](b, ConfigKeyName); err != nil {
		return nil, err
	}
	if b.typ, err = ConfigValue[string](b, ConfigKeyType); err != nil {
		return nil, err
	}

	b.outputPortTable[PortHeartbeat] = PortInfo{
		Type:        TypeNone,
		Flags:       NewPortFlags(),
		Description: "Outputs the heartbeat stamp with an empty datum.",
	}

	return b, nil
}

// BindHooks attaches the concrete process's hooks. Must be called before
// the process is handed to the assembler; unbound hooks are no-ops.
func (b *Base) BindHooks(h Hooks) {
	b.hooks = h
}

func (b *Base) Name() string { return b.name }
func (b *Base) Type() string { return b.typ }

// IsReentrant reports whether Step may be invoked concurrently on this
// instance. The base is not reentrant; a concrete process that collates
// its input edges safely may shadow this.
func (b *Base) IsReentrant() bool { return false }

// IsComplete reports whether the process has marked itself complete.
func (b *Base) IsComplete() bool { return b.complete }

// Init moves the process from connected to initialized. Every input port
// flagged required must hold a live edge. Runs the OnInit hook.
func (b *Base) Init() error {
	if b.initialized {
		return &ReinitializationError{Process: b.name}
	}

	for _, port := range b.RequiredInputs() {
		if ref, ok := b.inputEdges[port]; !ok || ref.Expired() {
			return &MissingConnectionError{
				Process: b.name,
				Port:    port,
				Reason:  "a required input port must be connected before initialization",
			}
		}
	}

	b.initialized = true
	return b.hooks.OnInit()
}

// Step runs one iteration: the OnStep hook while the process is live, then
// exactly one heartbeat emission. A hook error skips the heartbeat and
// surfaces to the scheduler.
func (b *Base) Step(ctx context.Context) error {
	if !b.initialized {
		return &UninitializedError{Process: b.name}
	}

	if !b.complete {
		if err := b.hooks.OnStep(ctx); err != nil {
			return err
		}
	}

	return b.runHeartbeat(ctx)
}

func (b *Base) runHeartbeat(ctx context.Context) error {
	dat := EmptyDatum()
	if b.complete {
		dat = CompleteDatum()
	}

	ed := EdgeDatum{Datum: dat, Stamp: b.hbStamp}
	if err := PushToEdges(ctx, b.outputEdges[PortHeartbeat], ed); err != nil {
		return err
	}

	b.hbStamp = b.hbStamp.Incremented()
	return nil
}

// MarkAsComplete makes the terminal transition. Every connected input edge
// is told its downstream is done; later Step calls skip OnStep and emit
// complete heartbeats. Calling it again is a no-op.
func (b *Base) MarkAsComplete() {
	if b.complete {
		return
	}
	b.complete = true

	for _, ref := range b.inputEdges {
		if e, ok := ref.Lock(); ok {
			e.MarkDownstreamComplete()
		}
	}
}

// HeartbeatStamp returns the stamp the next heartbeat will carry.
func (b *Base) HeartbeatStamp() Stamp { return b.hbStamp }

// ConnectInputPort attaches an edge to an input port. Rejected once the
// process is initialized, and while the port still holds a live edge. Ports
// missing from the table are offered to the OnConnectInput hook, which may
// declare them on the fly.
func (b *Base) ConnectInputPort(port string, edge EdgeRef) error {
	if edge.IsZero() {
		return &NullEdgeError{Process: b.name, Port: port}
	}
	if b.initialized {
		return &ConnectToInitializedError{Process: b.name, Port: port}
	}

	ok, err := b.recordInputEdge(port, edge)
	if err != nil || ok {
		return err
	}

	handled, err := b.hooks.OnConnectInput(port, edge)
	if err != nil {
		return err
	}
	if handled {
		if ok, err := b.recordInputEdge(port, edge); err != nil {
			return err
		} else if ok {
			return nil
		}
	}
	return &NoSuchPortError{Process: b.name, Port: port}
}

// ConnectOutputPort attaches an edge to an output port, appending to the
// port's fan-out group. Guarded against post-init connects like the input
// side.
func (b *Base) ConnectOutputPort(port string, edge EdgeRef) error {
	if edge.IsZero() {
		return &NullEdgeError{Process: b.name, Port: port}
	}
	if b.initialized {
		return &ConnectToInitializedError{Process: b.name, Port: port}
	}

	if b.recordOutputEdge(port, edge) {
		return nil
	}

	handled, err := b.hooks.OnConnectOutput(port, edge)
	if err != nil {
		return err
	}
	if handled && b.recordOutputEdge(port, edge) {
		return nil
	}
	return &NoSuchPortError{Process: b.name, Port: port}
}

func (b *Base) recordInputEdge(port string, edge EdgeRef) (bool, error) {
	if _, declared := b.inputPortTable[port]; !declared {
		return false, nil
	}
	if prev, ok := b.inputEdges[port]; ok && !prev.Expired() {
		return true, &PortReconnectError{Process: b.name, Port: port}
	}
	b.inputEdges[port] = edge
	return true, nil
}

func (b *Base) recordOutputEdge(port string, edge EdgeRef) bool {
	if _, declared := b.outputPortTable[port]; !declared {
		return false
	}
	b.outputEdges[port] = append(b.outputEdges[port], edge)
	return true
}

// DeclareInputPort registers or overwrites an input port. Only valid
// before Init.
func (b *Base) DeclareInputPort(port string, info PortInfo) error {
	if b.initialized {
		return &LateDeclarationError{Process: b.name, What: "input port " + port}
	}
	b.inputPortTable[port] = info
	return nil
}

// DeclareOutputPort registers or overwrites an output port. The heartbeat
// port belongs to the base and cannot be redeclared.
func (b *Base) DeclareOutputPort(port string, info PortInfo) error {
	if b.initialized {
		return &LateDeclarationError{Process: b.name, What: "output port " + port}
	}
	if port == PortHeartbeat {
		return ErrReservedPort
	}
	b.outputPortTable[port] = info
	return nil
}

// DeclareConfigurationKey registers or overwrites a config key.
func (b *Base) DeclareConfigurationKey(key string, info ConfInfo) error {
	if b.initialized {
		return &LateDeclarationError{Process: b.name, What: "configuration key " + key}
	}
	b.configKeyTable[key] = info
	return nil
}

// RequiredInputs lists the input ports flagged required, sorted.
func (b *Base) RequiredInputs() []string {
	return requiredPorts(b.inputPortTable)
}

// RequiredOutputs lists the output ports flagged required, sorted.
func (b *Base) RequiredOutputs() []string {
	return requiredPorts(b.outputPortTable)
}

func requiredPorts(table map[string]PortInfo) []string {
	var out []string
	for port, info := range table {
		if info.Flags.Has(FlagRequired) {
			out = append(out, port)
		}
	}
	sort.Strings(out)
	return out
}

// InputPorts lists every known input port: the hook's extras in the order
// the hook returns them, followed by the base table sorted by name. Names
// may repeat when a hook shadows a table entry.
func (b *Base) InputPorts() []string {
	return catalogNames(b.hooks.ExtraInputPorts(), b.inputPortTable)
}

// OutputPorts lists every known output port.
func (b *Base) OutputPorts() []string {
	return catalogNames(b.hooks.ExtraOutputPorts(), b.outputPortTable)
}

func catalogNames[V any](extra []string, table map[string]V) []string {
	names := append([]string(nil), extra...)
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(names, keys...)
}

// InputPortInfo describes an input port. Hook info shadows the table.
func (b *Base) InputPortInfo(port string) (PortInfo, error) {
	if info, ok := b.hooks.ExtraInputPortInfo(port); ok {
		return info, nil
	}
	if info, ok := b.inputPortTable[port]; ok {
		return info, nil
	}
	return PortInfo{}, &NoSuchPortError{Process: b.name, Port: port}
}

// OutputPortInfo describes an output port. Hook info shadows the table.
func (b *Base) OutputPortInfo(port string) (PortInfo, error) {
	if info, ok := b.hooks.ExtraOutputPortInfo(port); ok {
		return info, nil
	}
	if info, ok := b.outputPortTable[port]; ok {
		return info, nil
	}
	return PortInfo{}, &NoSuchPortError{Process: b.name, Port: port}
}

// AvailableConfig lists every known configuration key.
func (b *Base) AvailableConfig() []string {
	return catalogNames(b.hooks.ExtraConfigKeys(), b.configKeyTable)
}

// ConfigInfo describes a configuration key. Hook info shadows the table.
func (b *Base) ConfigInfo(key string) (ConfInfo, error) {
	if info, ok := b.hooks.ExtraConfigInfo(key); ok {
		return info, nil
	}
	if info, ok := b.configKeyTable[key]; ok {
		return info, nil
	}
	return ConfInfo{}, &UnknownConfigKeyError{Process: b.name, Key: key}
}

// InputPortEdge returns the edge connected to an input port; the zero ref
// when the port is declared but unconnected.
func (b *Base) InputPortEdge(port string) (EdgeRef, error) {
	if _, ok := b.inputPortTable[port]; !ok {
		return EdgeRef{}, &NoSuchPortError{Process: b.name, Port: port}
	}
	return b.inputEdges[port], nil
}

// OutputPortEdges returns the fan-out group connected to an output port.
func (b *Base) OutputPortEdges(port string) ([]EdgeRef, error) {
	if _, ok := b.outputPortTable[port]; !ok {
		return nil, &NoSuchPortError{Process: b.name, Port: port}
	}
	return b.outputEdges[port], nil
}

// GrabFromPort dequeues the next packet from an input port's edge.
func (b *Base) GrabFromPort(ctx context.Context, port string) (EdgeDatum, error) {
	if _, ok := b.inputPortTable[port]; !ok {
		return EdgeDatum{}, &NoSuchPortError{Process: b.name, Port: port}
	}
	ref, ok := b.inputEdges[port]
	if !ok {
		return EdgeDatum{}, &MissingConnectionError{
			Process: b.name,
			Port:    port,
			Reason:  "data was requested from the port",
		}
	}
	e, ok := ref.Lock()
	if !ok {
		return EdgeDatum{}, &MissingConnectionError{
			Process: b.name,
			Port:    port,
			Reason:  "the connected edge has been released",
		}
	}
	return e.Get(ctx)
}

// PushToPort broadcasts a packet to every edge on an output port. A
// declared but unconnected port is a silent no-op, so optional outputs
// cost nothing.
func (b *Base) PushToPort(ctx context.Context, port string, ed EdgeDatum) error {
	if _, ok := b.outputPortTable[port]; !ok {
		return &NoSuchPortError{Process: b.name, Port: port}
	}
	edges, ok := b.outputEdges[port]
	if !ok {
		return nil
	}
	return PushToEdges(ctx, edges, ed)
}

// GetConfig returns the config the process was constructed with.
func (b *Base) GetConfig() *Config { return b.conf }

// EnsureInputsAreSameColor records whether OnStep expects all input packets
// in one step to share a stamp color. The base stores the flag; it does not
// enforce it.
func (b *Base) EnsureInputsAreSameColor(ensure bool) { b.inputSameColor = ensure }

// EnsureInputsAreInSync records whether OnStep expects all input packets in
// one step to carry equal stamps. Stored, not enforced.
func (b *Base) EnsureInputsAreInSync(ensure bool) { b.inputSync = ensure }

// EnsureInputsAreValid records whether OnStep expects only data packets on
// its inputs. Stored, not enforced.
func (b *Base) EnsureInputsAreValid(ensure bool) { b.inputValid = ensure }

// InputsSameColor reads the same-color policy flag.
func (b *Base) InputsSameColor() bool { return b.inputSameColor }

// InputsInSync reads the in-sync policy flag.
func (b *Base) InputsInSync() bool { return b.inputSync }

// InputsValid reads the valid policy flag.
func (b *Base) InputsValid() bool { return b.inputValid }

// ConfigValue reads a declared configuration value as T: the supplied value
// when the config has one, the declared default otherwise.
func ConfigValue[T any](b *Base, key string) (T, error) {
	info, ok := b.configKeyTable[key]
	if !ok {
		var zero T
		return zero, &UnknownConfigKeyError{Process: b.name, Key: key}
	}
	if raw, ok := b.conf.Value(key); ok {
		return configAs[T](key, raw)
	}
	return configAs[T](key, info.Default)
}
