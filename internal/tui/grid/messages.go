package grid

// CopiedMsg reports the outcome of a clipboard copy.
type CopiedMsg struct {
	What string
	Text string
	Err  error
}
