// Package erruser provides errors whose Error() returns only a user-facing
// message; the cause is available via Unwrap() for Details or logs. Each error
// carries a Kind so the CLI can tell configuration problems from network or
// provider failures without parsing messages.
package erruser

import "errors"

// Kind classifies a failure for the user.
type Kind int

const (
	Unknown Kind = iota
	// Configuration covers missing or invalid settings and empty required prompt input.
	Configuration
	// Validation means the selected model is not in the provider's live model list.
	Validation
	// Network is a connection or protocol failure reaching the provider.
	Network
	// Timeout is a request that exceeded the configured deadline.
	Timeout
	// MalformedResponse is a body that does not decode into the expected shape, or has no choices.
	MalformedResponse
	// Provider is an error payload returned by the provider.
	Provider
	// EmptyDiff means there are no changes to act on.
	EmptyDiff
	// Subprocess is a git invocation that exited non-zero.
	Subprocess
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	Configuration:     "configuration",
	Validation:        "validation",
	Network:           "network",
	Timeout:           "timeout",
	MalformedResponse: "malformed response",
	Provider:          "provider",
	EmptyDiff:         "empty diff",
	Subprocess:        "subprocess",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Err holds a user-facing message, its kind, and an optional cause for debugging.
// Error() returns only Msg so the primary line never contains command names
// or exit codes; use Unwrap() for technical detail.
type Err struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error for Details or logging.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an *Err of the given kind. err may be nil.
func New(kind Kind, msg string, err error) error {
	return &Err{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Err in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Err
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
