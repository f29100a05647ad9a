package errors

import (
	"fmt"
	"strings"

	"github.com/pontaoski/plc/types"
)

type LexError struct {
	Message  string
	Location types.Span
}

func (e LexError) Error() string {
	return fmt.Sprintf("%s. %s", e.Message, e.Location)
}

type ParseError struct {
	Message  string
	Location types.Span
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s. %s", e.Message, e.Location)
}

// ExpectedOneOf builds the ParseError for a token that matched none of the
// expected literals or kinds.
func ExpectedOneOf(expected []string, got string, location types.Span) ParseError {
	if len(expected) == 1 {
		return ParseError{
			Message:  fmt.Sprintf("got %s, expected %s", got, expected[0]),
			Location: location,
		}
	}
	return ParseError{
		Message:  fmt.Sprintf("got %s, expected one of %s", got, strings.Join(expected, ", ")),
		Location: location,
	}
}

type TypeError struct {
	Message  string
	Location types.Span
}

func (e TypeError) Error() string {
	return fmt.Sprintf("%s. %s", e.Message, e.Location)
}

// Redefined reports a name bound twice in the same scope.
func Redefined(what, name string, location types.Span) TypeError {
	return TypeError{
		Message:  fmt.Sprintf("%s %s is already defined in this scope", what, name),
		Location: location,
	}
}

// Mismatch reports a value of type got used where want is required.
func Mismatch(want, got string, location types.Span) TypeError {
	return TypeError{
		Message:  fmt.Sprintf("expected type %s, received %s", want, got),
		Location: location,
	}
}

type RuntimeError struct {
	Message  string
	Location types.Span
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("%s. %s", e.Message, e.Location)
}
