package evaluator

import "fmt"

// UnsupportedError marks a condition or operator this engine cannot
// evaluate locally (IP/UA derivations, segment lists, embedded code,
// anything unrecognized). It is recovered at the spec-evaluation
// boundary and surfaced only as the Unsupported evaluation reason; it
// must never be treated as a plain non-match, because that would make
// "cannot evaluate here" indistinguishable from "legitimately false".
type UnsupportedError struct {
	What string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported evaluation: %s", e.What)
}

func unsupported(kind, name string) error {
	return &UnsupportedError{What: kind + " " + name}
}
