package emit

// NullEmitter discards all events.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit is a no-op.
func (n *NullEmitter) Emit(event Event) {}
