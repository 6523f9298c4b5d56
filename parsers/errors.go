package parsers

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure is matched by every StructuralError.
	ErrStructure = errors.New("structural extraction failure")

	ErrUnknownCMS       = errors.New("unknown cms")
	ErrInvalidPublisher = errors.New("invalid publisher")
)

// StructuralError reports that a page lacks the anchor structure a parser
// needs, such as a JSON-LD block or a content container.
type StructuralError struct {
	Parser   string
	Expected string
	URL      string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s at %s", ErrStructure, e.Parser, e.Expected, e.URL)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructure
}
