package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// tinyTalkLexer tokenizes TinyTalk source. There is no separate keyword
// token class: "when", "create", "is", and the rest of the reserved
// surface words are ordinary Ident tokens, matched positionally as
// literals by the grammar below. Only the four reserved words (as,
// where, true, false) are rejected as names, and only at the point
// a name is actually captured (see validateName in convert.go) — every
// other position in the grammar is free to treat a reserved-looking word
// as an ordinary tag or attribute name.
// The simple lexer tokenizes eagerly — one greedy token at a time, left
// to right, with no backtracking into tokens already emitted — so two
// patterns below are deliberately narrower than the surface language's
// "name" production might suggest, to keep an unspaced binary "-" from
// being swallowed into whichever token precedes it:
//
//   - Number has no leading sign. A signed Number would turn "5-3" into
//     Number("5"), Number("-3") instead of Number("5"), Punct("-"),
//     Number("3"). Leading minus is instead a grammar production
//     (PrimaryAST.Neg below), which composes correctly with
//     addition/subtraction regardless of spacing.
//   - Ident and Path only allow a hyphen when it is followed by another
//     name character. An unrestricted "[a-z_-]*" would turn "x-10" into
//     Ident("x-"), Number("10") — the trailing hyphen silently absorbed
//     into the identifier — instead of Ident("x"), Punct("-"),
//     Number("10").
var tinyTalkLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Path", Pattern: `[a-z][a-z_]*(-[a-z_]+)*\.[a-z][a-z_]*(-[a-z_]+)*`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[a-z][a-z_]*(-[a-z_]+)*`},
	{Name: "Hash", Pattern: `#`},
	{Name: "Punct", Pattern: `[\[\]();:<>+*/-]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n,]+`},
})

// AppAST is the top-level "app" production: one or more match clauses
// followed by one or more write clauses.
type AppAST struct {
	Matches []*MatchAST `parser:"\"when\" @@ (\";\" @@)*"`
	Writes  []*WriteAST `parser:"@@ (\";\" @@)*"`
}

// MatchAST: adjectives? relation? "[" tags attr-conds? "]" ("as" name)?
type MatchAST struct {
	Adjectives []string       `parser:"@(\"one\" | \"only\" | \"global\")*"`
	Relation   bool           `parser:"@\"friend\"?"`
	Tags       []*TagAST      `parser:"\"[\" @@+"`
	Conds      []*AttrCondAST `parser:"@@* \"]\""`
	Alias      *AliasAST      `parser:"@@?"`
}

// TagAST: "#" name
type TagAST struct {
	Name string `parser:"\"#\" @Ident"`
}

// AttrCondAST folds both match-clause productions that begin with a bare
// name into one type:
//
//	Name only            -> datum with no value (wildcard)
//	Name ":" Value        -> datum with a value (not used in match bodies,
//	                          but accepted and lowered to an equality)
//	Name "where" Where     -> name "where" truthy
type AttrCondAST struct {
	Name  string   `parser:"@Ident"`
	Where *ExprAST `parser:"( \"where\" @@"`
	Value *ExprAST `parser:"| \":\" @@ )?"`
}

// AliasAST: "as" name ("/" name)*
type AliasAST struct {
	Names []string `parser:"\"as\" @Ident (\"/\" @Ident)*"`
}

// WriteAST dispatches on create/update.
type WriteAST struct {
	Create *CreateAST `parser:"\"create\" @@"`
	Update *UpdateAST `parser:"| \"update\" @@"`
}

// CreateAST: "create" relation? "[" tags data? "]"
type CreateAST struct {
	Relation bool        `parser:"@\"friend\"?"`
	Tags     []*TagAST   `parser:"\"[\" @@+"`
	Data     []*DatumAST `parser:"@@* \"]\""`
}

// UpdateAST: "update" name "[" data "]"
type UpdateAST struct {
	Alias string      `parser:"@Ident"`
	Data  []*DatumAST `parser:"\"[\" @@+ \"]\""`
}

// DatumAST: name (":" expr)?
type DatumAST struct {
	Name  string   `parser:"@Ident"`
	Value *ExprAST `parser:"( \":\" @@ )?"`
}

// ExprAST is the top of the precedence ladder: a chain of comparisons
// over additive expressions. The repeated Ops field captures chained
// inequalities (a op1 b op2 c ...) directly, without backtracking.
type ExprAST struct {
	Left *AdditiveAST      `parser:"@@"`
	Ops  []*ComparisonTail `parser:"@@*"`
}

type ComparisonTail struct {
	Op    string       `parser:"@(\"<\" | \">\" | \"is\" | \"not\")"`
	Right *AdditiveAST `parser:"@@"`
}

type AdditiveAST struct {
	Left *MultiplicativeAST `parser:"@@"`
	Ops  []*AdditiveTail    `parser:"@@*"`
}

type AdditiveTail struct {
	Op    string             `parser:"@(\"+\" | \"-\")"`
	Right *MultiplicativeAST `parser:"@@"`
}

type MultiplicativeAST struct {
	Left *PrimaryAST           `parser:"@@"`
	Ops  []*MultiplicativeTail `parser:"@@*"`
}

type MultiplicativeTail struct {
	Op    string      `parser:"@\"*\""`
	Right *PrimaryAST `parser:"@@"`
}

// PrimaryAST is a literal, a bare name, a path, a parenthesized
// sub-expression, or a unary-minus-prefixed primary.
type PrimaryAST struct {
	Number *float64    `parser:"  @Number"`
	Str    *string     `parser:"| @String"`
	True   bool        `parser:"| @\"true\""`
	False  bool        `parser:"| @\"false\""`
	Path   *string     `parser:"| @Path"`
	Name   *string     `parser:"| @Ident"`
	Sub    *ExprAST    `parser:"| \"(\" @@ \")\""`
	Neg    *PrimaryAST `parser:"| \"-\" @@"`
}

// BuildParser constructs the participle parser for a single TinyTalk
// rule (the "app" production).
func BuildParser() (*participle.Parser[AppAST], error) {
	return participle.Build[AppAST](
		participle.Lexer(tinyTalkLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
}
