package iql

import "fmt"

// LexError reports a malformed token. Offset is the byte position in the
// query text where lexing failed.
type LexError struct {
	Offset int
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Msg)
}

// ParseError reports a grammar violation: what class of token was expected
// and what was found, with the byte offset where parsing diverged.
type ParseError struct {
	Offset   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: expected %s, found %s", e.Offset, e.Expected, e.Found)
}
