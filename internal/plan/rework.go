package plan

import (
	"fmt"
	"time"

	"github.com/sqlitch/sqlitch/internal/coreerr"
)

// Rework duplicates the latest occurrence of name after the most
// recent tag boundary: it appends a new Change with the same name, a
// fresh timestamp, and — once computeIDs runs — a distinct ChangeID,
// so deploy/revert can address the two instances unambiguously via
// change_id rather than name (spec §4.C "Rework semantics").
//
// Dependencies and conflicts are copied from the prior occurrence as
// a starting point; callers may mutate the returned *Change before
// the plan is persisted.
func Rework(p *Plan, name, planner string, plannedAt time.Time, note string) (*Change, error) {
	prior := p.LastChangeNamed(name)
	if prior == nil {
		return nil, coreerr.Plan("", 0, "cannot rework %q: no such change in plan", name)
	}
	if !hasInterveningTag(p, prior) {
		return nil, coreerr.Plan("", 0, "cannot rework %q: it has not been tagged since it was last planned", name)
	}

	next := &Change{
		Name:         name,
		Planner:      planner,
		PlannedAt:    plannedAt,
		Note:         note,
		Dependencies: append([]Dependency(nil), prior.Dependencies...),
		Conflicts:    append([]Dependency(nil), prior.Conflicts...),
	}
	p.Entries = append(p.Entries, Entry{Change: next})
	p.computeIDs()
	return next, nil
}

// hasInterveningTag reports whether at least one Tag entry exists
// strictly after prior in file order.
func hasInterveningTag(p *Plan, prior *Change) bool {
	idx := p.IndexOfChange(prior)
	if idx < 0 {
		return false
	}
	for _, e := range p.Entries[idx+1:] {
		if e.Tag != nil {
			return true
		}
	}
	return false
}

// ReworkScriptPaths returns the conventional script paths for a
// reworked change: the prior instance's deploy/revert/verify scripts
// are renamed to "<name>@<tag>.sql" (the tag that froze it) and the
// new instance keeps the bare "<name>.sql" paths (spec §4.C).
func ReworkScriptPaths(name string, freezeTag string) (priorDeploy, priorRevert, priorVerify, deploy, revert, verify string) {
	suffix := fmt.Sprintf("%s@%s.sql", name, freezeTag)
	priorDeploy = "deploy/" + suffix
	priorRevert = "revert/" + suffix
	priorVerify = "verify/" + suffix
	deploy = "deploy/" + name + ".sql"
	revert = "revert/" + name + ".sql"
	verify = "verify/" + name + ".sql"
	return
}
