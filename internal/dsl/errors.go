package dsl

import "fmt"

// SyntaxError is returned for both grammar failures and post-parse
// validation failures (reserved names). Kind groups related failures for
// callers that want to discriminate without string matching the message.
type SyntaxError struct {
	Kind    string
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error (%v): %v", e.Kind, e.Message)
}
