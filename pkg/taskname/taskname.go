package taskname

const (
	// Reading tasks
	ReadingPlayStep = "reading:play_step"

	// Payment tasks
	PaymentSync = "payment:sync"
)
