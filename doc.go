/*
Package phonograph allows to build and render audio node graphs.

Concept

A graph consists of nodes. Every node has inputs, outputs and params.
Outputs are connected to inputs and params of other nodes:

    Source - node without inputs, e.g. oscillator or sampled audio;
    Processor - node which transforms its inputs, e.g. gain or filter;
    Destination - the root of the graph, owned by the context.

Context renders the graph in quanta of fixed size. Every quantum the
destination is pulled, it pulls its inputs and so on. Each node is
processed at most once per quantum, so fan-out doesn't render twice.
Feedback cycles are allowed: the node which closes a cycle exposes the
signal of the previous quantum.

Graph changes

Control goroutines change the graph concurrently with rendering:

    osc := node.NewOscillator(ctx, node.Sine)
    gain := node.NewGain(ctx)
    err := ctx.Connect(gain, osc, 0, 0)
    err = ctx.Connect(ctx.Destination(), gain, 0, 0)
    err = osc.Start(0)

Connect validates arguments and queues the change. Render goroutine
commits queued changes in order at the start of the next quantum, under
the graph lock. SynchronizeConnections commits them immediately.

Rendering

Realtime context is rendered by the device, which calls RenderQuantum.
When the graph lock is contended, realtime render waits for a bounded
time and renders silence if the lock is still busy. Offline context is
rendered by its own loop:

    ctx, err := phonograph.NewOfflineContext(cfg, time.Second)
    err = ctx.StartOfflineRendering()
    err = ctx.Wait()
    bus := ctx.Rendered()

Process of the node is called on render goroutine. It must not allocate,
lock, block or perform I/O. Nodes report faults with Fail, the engine
renders them silent afterwards.
*/
package phonograph
