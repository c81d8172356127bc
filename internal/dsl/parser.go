package dsl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/tinylanders/tinytalk/internal/ast"
)

// Parser parses TinyTalk rule source into ast.Rule values. It holds no
// mutable state beyond the built participle parser and is safe for
// concurrent use.
type Parser struct {
	p *participle.Parser[AppAST]
}

// NewParser builds a Parser, compiling the grammar once.
func NewParser() (*Parser, error) {
	p, err := BuildParser()
	if err != nil {
		return nil, fmt.Errorf("dsl: building grammar: %w", err)
	}
	return &Parser{p: p}, nil
}

// ParseRule parses a single rule ("when ... ; ...create/update...") and
// lowers it to an ast.Rule. On syntax failure the returned error carries
// the grammar's failing position; no partial rule is ever returned.
func (p *Parser) ParseRule(src string) (*ast.Rule, error) {
	tree, err := p.p.ParseString("", src)
	if err != nil {
		return nil, SyntaxError{Kind: "ParseError", Message: err.Error()}
	}

	rule, err := convertApp(tree, strings.TrimSpace(src))
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// RuleFileResult pairs one rule-file entry's source text with either its
// successfully lowered Rule or the error that discarded it.
type RuleFileResult struct {
	Source string
	Rule   *ast.Rule
	Err    error
}

// ParseRuleFile splits a rule-source file on blank lines, parsing each
// entry independently. A parse failure on one entry is recorded in its
// result and does not affect any other entry — mirroring the source
// convention that a bad rule aborts only its own load.
func ParseRuleFile(r io.Reader) ([]RuleFileResult, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("dsl: reading rule file: %w", err)
	}

	var results []RuleFileResult
	for _, entry := range strings.Split(string(data), "\n\n") {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}

		rule, err := p.ParseRule(trimmed)
		results = append(results, RuleFileResult{Source: trimmed, Rule: rule, Err: err})
	}

	return results, nil
}
