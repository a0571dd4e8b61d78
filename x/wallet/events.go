package wallet

// CreatedEvent is published after a wallet is persisted.
type CreatedEvent struct {
	Wallet *Wallet
}

// UpdatedEvent is published after any wallet configuration change,
// including enabling and disabling.
type UpdatedEvent struct {
	Wallet *Wallet
}
