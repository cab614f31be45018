package mediator

// Request is implemented by every command and query routed through the
// Dispatcher. RequestName must be a constant per type and must not depend
// on field values: it is called on the zero value during registration.
type Request interface {
	RequestName() string
}

// CommandOf marks a struct as a state-changing request whose handler
// produces an R. Embed it by value.
type CommandOf[R any] struct{}

func (CommandOf[R]) commandResult(R) {}

// QueryOf marks a struct as a read-only request whose handler produces an R.
// Embed it by value.
type QueryOf[R any] struct{}

func (QueryOf[R]) queryResult(R) {}

// Command is satisfied by requests embedding CommandOf[R].
type Command[R any] interface {
	Request
	commandResult(R)
}

// Query is satisfied by requests embedding QueryOf[R].
type Query[R any] interface {
	Request
	queryResult(R)
}
