package phonograph

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ActiveState is reported for nodes without scheduling state.
const ActiveState = "active"

// Input status labels of NodeReport.
const (
	InputsSilent = "inputs silent"
	InputsActive = "inputs active"
	NoInputs     = "no inputs"
)

// NodeReport describes a node reached by graph traversal.
type NodeReport struct {
	Depth int
	// Via is the name of the param node was reached through, if any.
	Via    string
	ID     string
	Name   string
	State  string
	Status string
	// Inputs holds true for every input with non-zero signal.
	Inputs []bool
	// Params holds driven params and if they had non-zero values.
	Params  []ParamReport
	Err     error
	Revisit bool
}

// ParamReport describes a param driven by audio-rate connections.
type ParamReport struct {
	Name    string
	NonZero bool
}

// Traverse walks committed graph from destination and automatic pull
// nodes. Every node is reported once, repeated visits are reported with
// Revisit flag. Silence flags reflect the last rendered quantum. It must
// not be called from View.
func (c *Context) Traverse() []NodeReport {
	var reports []NodeReport
	c.walk(func(nr NodeReport, _ walkLine) {
		if nr.Name != "" {
			reports = append(reports, nr)
		}
	})
	return reports
}

// WriteGraph writes traversal as indented text.
func (c *Context) WriteGraph(w io.Writer) error {
	var err error
	c.walk(func(nr NodeReport, l walkLine) {
		if err != nil {
			return
		}
		indent := strings.Repeat(" ", nr.Depth)
		switch {
		case l.text != "":
			_, err = fmt.Fprintf(w, "%s%s\n", indent, l.text)
		case nr.Revisit:
			_, err = fmt.Fprintf(w, "%s*--> %s\n", strings.Repeat(" ", l.parentDepth), nr.Name)
		case nr.Via != "":
			_, err = fmt.Fprintf(w, "%s%s: %s (%s) (%s)\n", indent, nr.Via, nr.Name, nr.State, nr.Status)
		default:
			_, err = fmt.Fprintf(w, "%s%s (%s) (%s)\n", indent, nr.Name, nr.State, nr.Status)
		}
	})
	return err
}

// walkLine is an auxiliary line of text rendering.
type walkLine struct {
	text        string
	parentDepth int
}

type walker struct {
	visited map[*BaseNode]bool
	emit    func(NodeReport, walkLine)
}

func (c *Context) walk(emit func(NodeReport, walkLine)) {
	if err := c.lock.rlock(context.Background()); err != nil {
		return
	}
	defer c.lock.runlock()
	w := walker{
		visited: make(map[*BaseNode]bool),
		emit:    emit,
	}
	w.node(c.destination.BaseNode, "", 0)
	for _, n := range c.pulls {
		if !w.visited[n] {
			w.node(n, "", 0)
		}
	}
}

func (w *walker) node(n *BaseNode, via string, depth int) {
	w.visited[n] = true
	nr := NodeReport{
		Depth:  depth,
		Via:    via,
		ID:     n.id,
		Name:   n.name,
		State:  ActiveState,
		Status: NoInputs,
		Inputs: make([]bool, len(n.inputs)),
		Err:    n.Err(),
	}
	if s, ok := n.self.(ScheduledNode); ok {
		nr.State = s.State().String()
	}
	if len(n.inputs) > 0 {
		nr.Status = InputsSilent
		for i, in := range n.inputs {
			nr.Inputs[i] = !in.silent && in.store.bus.MaxAbs() > 0
			if nr.Inputs[i] {
				nr.Status = InputsActive
			}
		}
	}
	for _, p := range n.params {
		if len(p.sources) > 0 {
			nr.Params = append(nr.Params, ParamReport{Name: p.name, NonZero: p.driven})
		}
	}
	w.emit(nr, walkLine{})

	for _, p := range n.params {
		if len(p.sources) == 0 {
			continue
		}
		label := "zero"
		if p.driven {
			label = "non-zero"
		}
		w.emit(NodeReport{Depth: depth}, walkLine{text: fmt.Sprintf("driven param has %s values", label)})
		for _, out := range p.sources {
			w.source(out.node, p.name, depth)
		}
	}
	for i, in := range n.inputs {
		label := "zero signal"
		if nr.Inputs[i] {
			label = "active signal"
		}
		w.emit(NodeReport{Depth: depth}, walkLine{text: fmt.Sprintf("input %d: %s", i, label)})
		for _, out := range in.sources {
			w.source(out.node, "", depth)
		}
	}
}

func (w *walker) source(n *BaseNode, via string, depth int) {
	if w.visited[n] {
		w.emit(NodeReport{Depth: depth + 3, Name: n.name, ID: n.id, Revisit: true}, walkLine{parentDepth: depth})
		return
	}
	w.node(n, via, depth+3)
}
