package phonograph

import "context"

type changeKind int

const (
	connectChange changeKind = iota
	disconnectChange
	disconnectInputChange
	connectParamChange
	disconnectParamChange
	removeChange
	startChange
	stopChange
	addParamEvent
	cancelParamEvents
	addPullChange
	removePullChange
	mutateNode
)

// change is a pending graph mutation. Control goroutines enqueue them,
// render goroutine applies them in order under exclusive graph lock.
type change struct {
	kind     changeKind
	dst      *BaseNode
	src      *BaseNode
	dstIndex int
	srcIndex int
	param    *Param
	event    automationEvent
	time     float64
	sched    *Scheduler
	frame    uint64
	loops    int
	fn       func()
}

// enqueue adds change to the pending queue. It never blocks render
// goroutine: when queue is full, the caller commits it by itself.
func (c *Context) enqueue(ch change) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.changes <- ch:
		return nil
	default:
	}
	for {
		if err := c.SynchronizeConnections(); err != nil {
			return err
		}
		select {
		case c.changes <- ch:
			return nil
		default:
		}
	}
}

// SynchronizeConnections commits all pending changes on the calling
// goroutine. After it returns, changes enqueued before the call are
// visible to IsConnected and Traverse.
func (c *Context) SynchronizeConnections() error {
	if err := c.lock.lock(context.Background()); err != nil {
		return err
	}
	defer c.lock.unlock()
	c.commit()
	return nil
}

// commit applies changes queued at the moment of the call. Must be called
// with exclusive graph lock.
func (c *Context) commit() {
	for n := len(c.changes); n > 0; n-- {
		select {
		case ch := <-c.changes:
			c.apply(ch)
		default:
			return
		}
	}
}

func (c *Context) apply(ch change) {
	switch ch.kind {
	case connectChange:
		ch.dst.inputs[ch.dstIndex].connect(ch.src.outputs[ch.srcIndex])
	case disconnectChange:
		disconnect(ch.dst, ch.src, ch.dstIndex, ch.srcIndex)
	case disconnectInputChange:
		in := ch.dst.inputs[ch.dstIndex]
		for i := len(in.sources) - 1; i >= 0; i-- {
			in.disconnect(in.sources[i])
		}
	case connectParamChange:
		ch.param.connect(ch.src.outputs[ch.srcIndex])
	case disconnectParamChange:
		for i, out := range ch.src.outputs {
			if ch.srcIndex == AnyPort || ch.srcIndex == i {
				ch.param.disconnect(out)
			}
		}
	case removeChange:
		c.remove(ch.dst)
	case startChange:
		ch.sched.start(ch.frame, ch.loops)
	case stopChange:
		ch.sched.stop(ch.frame)
	case addParamEvent:
		ch.param.timeline.insert(ch.event)
	case cancelParamEvents:
		ch.param.cancel(ch.time)
	case addPullChange:
		for _, n := range c.pulls {
			if n == ch.dst {
				return
			}
		}
		c.pulls = append(c.pulls, ch.dst)
	case removePullChange:
		c.removePull(ch.dst)
	case mutateNode:
		ch.fn()
	}
}

// disconnect removes edges from src outputs. Nil dst matches every
// destination, including driven params.
func disconnect(dst, src *BaseNode, dstIndex, srcIndex int) {
	for i, out := range src.outputs {
		if srcIndex != AnyPort && srcIndex != i {
			continue
		}
		for j := len(out.inputs) - 1; j >= 0; j-- {
			in := out.inputs[j]
			if dst != nil && in.node != dst {
				continue
			}
			if dstIndex != AnyPort && dstIndex != in.index {
				continue
			}
			in.disconnect(out)
		}
		if dst != nil {
			continue
		}
		for j := len(out.params) - 1; j >= 0; j-- {
			out.params[j].disconnect(out)
		}
	}
}

// remove tears down every edge of the node.
func (c *Context) remove(n *BaseNode) {
	disconnect(nil, n, AnyPort, AnyPort)
	for _, in := range n.inputs {
		for i := len(in.sources) - 1; i >= 0; i-- {
			in.disconnect(in.sources[i])
		}
	}
	for _, p := range n.params {
		for i := len(p.sources) - 1; i >= 0; i-- {
			p.disconnect(p.sources[i])
		}
	}
	c.removePull(n)
}

func (c *Context) removePull(n *BaseNode) {
	for i, v := range c.pulls {
		if v == n {
			c.pulls = append(c.pulls[:i], c.pulls[i+1:]...)
			return
		}
	}
}
