package ast

// Adjective is drawn from the closed set {one, only, global}.
type Adjective string

const (
	AdjOne    Adjective = "one"
	AdjOnly   Adjective = "only"
	AdjGlobal Adjective = "global"
)

// MatchClause is one premise term: a tag set to match exactly, optional
// adjectives and a relation marker, per-attribute conditions, and the
// alias(es) the matched object binds to.
type MatchClause struct {
	Adjectives []Adjective
	Relation   bool // "friend"
	Tags       []string
	Attrs      map[string]Condition
	Aliases    []string // pronoun-equivalent alias list; may be empty
}

// ConsequenceKind discriminates the Consequence union.
type ConsequenceKind int

const (
	CreateConsequence ConsequenceKind = iota
	UpdateConsequence
)

// Consequence is either Create (produces a fresh object) or Update
// (patches the object bound to an existing alias).
type Consequence struct {
	Kind ConsequenceKind

	// Create
	CreateTags []string
	Relation   bool // when true, record the bound objects' ids in the new object's RelatedIDs

	// Update
	Alias string

	// Shared: attribute name -> expression producing its new value.
	Attrs map[string]*Expr
}

// Rule is immutable after load: an ordered, non-empty premise and an
// ordered, non-empty list of consequents.
type Rule struct {
	Premise     []MatchClause
	Consequents []Consequence

	// Source is the exact rule text this rule was parsed from, kept for
	// diagnostics (log lines, REPL echoes).
	Source string
}
