package reactive

import "github.com/tinylanders/tinytalk/internal/ast"

// triggerIndex maps a tag to the set of rule indices whose premise
// should be re-evaluated when an object carrying that tag is created or
// updated, grounded on original_source/tinytalk's scene.py
// TinylandScene.load_app.
type triggerIndex map[string]map[int]struct{}

func newTriggerIndex() triggerIndex {
	return make(triggerIndex)
}

func (idx triggerIndex) add(tag string, ruleID int) {
	set, ok := idx[tag]
	if !ok {
		set = make(map[int]struct{})
		idx[tag] = set
	}
	set[ruleID] = struct{}{}
}

// ruleIDsFor returns every rule id indexed under any of tags, each
// appearing once.
func (idx triggerIndex) ruleIDsFor(tags map[string]struct{}) map[int]struct{} {
	out := make(map[int]struct{})
	for tag := range tags {
		for ruleID := range idx[tag] {
			out[ruleID] = struct{}{}
		}
	}
	return out
}

// indexRule scans one rule's premise and records its tags into create
// and update: a tag on a clause with no attribute conditions is indexed
// under create only; a tag on a clause that does carry conditions is
// indexed under both, since an update might bring the object into (or
// out of) satisfying them.
func indexRule(ruleID int, premise []ast.MatchClause, create, update triggerIndex) {
	for _, clause := range premise {
		hasConds := len(clause.Attrs) > 0
		for _, tag := range clause.Tags {
			create.add(tag, ruleID)
			if hasConds {
				update.add(tag, ruleID)
			}
		}
	}
}
