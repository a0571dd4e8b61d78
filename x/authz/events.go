package authz

// CreatedEvent is published when a transaction enters the pipeline.
type CreatedEvent struct {
	Tx *Transaction
}

// SignedEvent is published for every accepted signature.
type SignedEvent struct {
	Tx *Transaction
}

// ReadyEvent is published when the signature threshold is reached.
type ReadyEvent struct {
	Tx *Transaction
}

// ExecutedEvent is published after a successful broadcast.
type ExecutedEvent struct {
	Tx *Transaction
}

// ExpiredEvent is published when a transaction passes its expiry, whether
// noticed by the sweep or by an operation touching it.
type ExpiredEvent struct {
	Tx *Transaction
}

// CancelledEvent is published when an owner cancels a transaction.
type CancelledEvent struct {
	Tx *Transaction
}
