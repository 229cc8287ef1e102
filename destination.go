package phonograph

// DestinationNode is the root of the graph. Its single input has the
// channel count of the device, every connected source is mixed into it.
type DestinationNode struct {
	*BaseNode
}

func newDestinationNode(ctx *Context, channels int) *DestinationNode {
	d := &DestinationNode{}
	d.BaseNode = NewBaseNode(ctx, d, "destination")
	d.AddInput(WithExplicitChannels(channels))
	return d
}

// Process does nothing, context reads the mixed input directly.
func (d *DestinationNode) Process(*RenderLock, int) {}

// NumberOfChannels returns device channel count.
func (d *DestinationNode) NumberOfChannels() int {
	return d.inputs[0].count
}
