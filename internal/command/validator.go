package command

import (
	"errors"
	"strings"
)

// Prefix every accepted command line has to start with.
const Prefix = "kubectl"

// ErrRejected matches any *ValidationError via errors.Is.
var ErrRejected = errors.New("command rejected")

type ValidationError struct {
	Raw     string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrRejected }

// Command is a validated command line. The zero value is not valid; use Validate.
type Command struct {
	line string
}

func (c Command) String() string { return c.line }

// Validate checks raw as presented against Prefix and only then trims and
// lower-cases it. "KUBECTL get pods" is rejected even though it would
// normalize to an accepted value.
func Validate(raw string) (Command, error) {
	if !strings.HasPrefix(raw, Prefix) {
		return Command{}, &ValidationError{
			Raw:     raw,
			Message: "Command must start with '" + Prefix + "'",
		}
	}
	return Command{line: strings.ToLower(strings.TrimSpace(raw))}, nil
}
