package pipeline

import (
	"fmt"

	"github.com/soochol/flume/internal/edge"
	"github.com/soochol/flume/internal/flow"
)

// Pipeline is an assembled, initialized process graph ready to run.
type Pipeline struct {
	def       *Definition
	processes map[string]flow.Process
	order     []string
	owners    []*flow.EdgeOwner
	monitors  map[string]*edge.Buffered
}

// Assemble instantiates def's processes through the registry, wires every
// connection with an owned edge, attaches a heartbeat monitor to each
// process, and initializes the graph.
func Assemble(def *Definition, reg *flow.Registry) (*Pipeline, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		def:       def,
		processes: make(map[string]flow.Process, len(def.Processes)),
		monitors:  make(map[string]*edge.Buffered, len(def.Processes)),
	}

	for _, pd := range def.Processes {
		proc, err := reg.Create(pd.Type, pd.Name, flow.ConfigFromMap(pd.Config))
		if err != nil {
			p.Release()
			return nil, err
		}
		p.processes[pd.Name] = proc
		p.order = append(p.order, pd.Name)
	}

	for _, c := range def.Connections {
		if err := p.connect(c); err != nil {
			p.Release()
			return nil, fmt.Errorf("pipeline %q: %w", def.Name, err)
		}
	}

	// Every process gets a heartbeat monitor so the runner can observe
	// liveness and completion.
	for _, name := range p.order {
		mon := edge.NewBuffered(def.EdgeCapacity)
		owner := flow.OwnEdge(mon)
		p.owners = append(p.owners, owner)
		if err := p.processes[name].ConnectOutputPort(flow.PortHeartbeat, owner.Ref()); err != nil {
			p.Release()
			return nil, fmt.Errorf("pipeline %q: monitor %q: %w", def.Name, name, err)
		}
		p.monitors[name] = mon
	}

	for _, name := range p.order {
		if err := p.processes[name].Init(); err != nil {
			p.Release()
			return nil, fmt.Errorf("pipeline %q: init %q: %w", def.Name, name, err)
		}
	}

	return p, nil
}

func (p *Pipeline) connect(c ConnectionDef) error {
	from, err := ParseEndpoint(c.From)
	if err != nil {
		return err
	}
	to, err := ParseEndpoint(c.To)
	if err != nil {
		return err
	}

	upstream := p.processes[from.Process]
	downstream := p.processes[to.Process]

	outInfo, err := upstream.OutputPortInfo(from.Port)
	if err != nil {
		return err
	}
	inInfo, err := downstream.InputPortInfo(to.Port)
	if err != nil {
		return err
	}
	if !typesCompatible(outInfo.Type, inInfo.Type) {
		return fmt.Errorf("connection %s -> %s: port types %q and %q do not match",
			c.From, c.To, outInfo.Type, inInfo.Type)
	}

	e := edge.NewBuffered(p.def.EdgeCapacity)
	owner := flow.OwnEdge(e)
	p.owners = append(p.owners, owner)

	if err := upstream.ConnectOutputPort(from.Port, owner.Ref()); err != nil {
		return err
	}
	return downstream.ConnectInputPort(to.Port, owner.Ref())
}

// typesCompatible applies the string-tag check: the wildcard matches
// anything, otherwise tags must be identical.
func typesCompatible(out, in string) bool {
	if out == flow.TypeAny || in == flow.TypeAny {
		return true
	}
	return out == in
}

// Name returns the pipeline's definition name.
func (p *Pipeline) Name() string { return p.def.Name }

// Definition returns the definition this pipeline was assembled from.
func (p *Pipeline) Definition() *Definition { return p.def }

// ProcessNames lists the processes in definition order.
func (p *Pipeline) ProcessNames() []string {
	return append([]string(nil), p.order...)
}

// Process returns a process by instance name.
func (p *Pipeline) Process(name string) (flow.Process, bool) {
	proc, ok := p.processes[name]
	return proc, ok
}

// Release drops every owned edge. Outstanding process-held refs expire.
func (p *Pipeline) Release() {
	for _, o := range p.owners {
		o.Release()
	}
	p.owners = nil
}
