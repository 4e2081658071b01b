package registry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sqlitch/sqlitch/internal/coreerr"
)

// Recorder is the CRUD surface over the registry tables (spec §4.F).
// It holds the registry handle and the project name it was opened
// for; RecordDeploy and RecordRevert each run their writes in a
// transaction of their own on that handle.
type Recorder struct {
	DB      *sql.DB
	Project string
}

// New returns a Recorder bound to project over db. db must already
// have the registry schema installed (see Ensure).
func New(db *sql.DB, project string) *Recorder {
	return &Recorder{DB: db, Project: project}
}

// Person is a resolved "Name <email>" identity split into its two
// stored columns.
type Person struct {
	Name  string
	Email string
}

// EnsureProject inserts a projects row if one does not already exist
// for r.Project.
func (r *Recorder) EnsureProject(ctx context.Context, uri string, creator Person) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO projects (project, uri, creator_name, creator_email)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM projects WHERE project = ?)`,
		r.Project, nullIfEmpty(uri), creator.Name, creator.Email, r.Project,
	)
	if err != nil {
		return coreerr.Registry(err, "ensuring project row for %q", r.Project)
	}
	return nil
}

// Dependency is one resolved requires/conflicts edge for record_deploy.
type Dependency struct {
	Type         string // "require" or "conflict"
	Name         string
	DependencyID string // resolved change_id; empty for conflicts
}

// DeployRecord carries everything record_deploy needs to populate
// changes, dependencies, and events in one transaction.
type DeployRecord struct {
	ChangeID    string
	Change      string
	Note        string
	ScriptHash  string
	PlannedAt   time.Time
	Planner     Person
	Committer   Person
	Deps        []Dependency
	TagsApplied []string
}

// RecordDeploy inserts the changes/dependencies/events rows for a
// single successful deploy, per spec §4.F. All three inserts happen
// in one transaction; a failure at any point rolls back cleanly so
// the registry never reflects a half-recorded deploy.
func (r *Recorder) RecordDeploy(ctx context.Context, rec DeployRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Registry(err, "beginning deploy recording transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	// committed_at carries sub-second precision so changes deployed
	// within the same second keep their deploy order.
	committedAt := time.Now().UTC().Format("2006-01-02 15:04:05.000000")
	_, err = tx.ExecContext(ctx, `
		INSERT INTO changes (change_id, script_hash, change, project, note, committed_at,
			committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ChangeID, rec.ScriptHash, rec.Change, r.Project, rec.Note, committedAt,
		rec.Committer.Name, rec.Committer.Email, rec.PlannedAt, rec.Planner.Name, rec.Planner.Email,
	)
	if err != nil {
		return coreerr.Registry(err, "recording change %q", rec.Change)
	}

	var requires, conflicts []string
	for _, d := range rec.Deps {
		switch d.Type {
		case "require":
			requires = append(requires, d.Name)
			_, err = tx.ExecContext(ctx, `
				INSERT INTO dependencies (change_id, type, dependency, dependency_id) VALUES (?, 'require', ?, ?)`,
				rec.ChangeID, d.Name, d.DependencyID)
		case "conflict":
			conflicts = append(conflicts, d.Name)
			_, err = tx.ExecContext(ctx, `
				INSERT INTO dependencies (change_id, type, dependency, dependency_id) VALUES (?, 'conflict', ?, NULL)`,
				rec.ChangeID, d.Name)
		}
		if err != nil {
			return coreerr.Registry(err, "recording dependency %q of %q", d.Name, rec.Change)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event, change_id, change, project, note, requires, conflicts, tags,
			committed_at, committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES ('deploy', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ChangeID, rec.Change, r.Project, rec.Note,
		strings.Join(requires, " "), strings.Join(conflicts, " "), strings.Join(rec.TagsApplied, " "), committedAt,
		rec.Committer.Name, rec.Committer.Email, rec.PlannedAt, rec.Planner.Name, rec.Planner.Email,
	)
	if err != nil {
		return coreerr.Registry(err, "recording deploy event for %q", rec.Change)
	}

	if err := tx.Commit(); err != nil {
		return coreerr.Registry(err, "committing deploy recording for %q", rec.Change)
	}
	return nil
}

// RecordRevert deletes the registry footprint of change_id and logs a
// revert event capturing a snapshot of what was removed, per spec
// §4.F "record_revert".
func (r *Recorder) RecordRevert(ctx context.Context, changeID string, committer Person) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Registry(err, "beginning revert recording transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var change, note string
	var plannedAt time.Time
	var plannerName, plannerEmail string
	err = tx.QueryRowContext(ctx, `
		SELECT change, note, planned_at, planner_name, planner_email FROM changes WHERE change_id = ?`,
		changeID,
	).Scan(&change, &note, &plannedAt, &plannerName, &plannerEmail)
	if err != nil {
		return coreerr.Registry(err, "looking up change %q before revert", changeID)
	}

	requires, conflicts := "", ""
	rows, err := tx.QueryContext(ctx, `SELECT type, dependency FROM dependencies WHERE change_id = ?`, changeID)
	if err != nil {
		return coreerr.Registry(err, "reading dependencies of %q before revert", changeID)
	}
	var reqs, cons []string
	for rows.Next() {
		var typ, dep string
		if err := rows.Scan(&typ, &dep); err != nil {
			rows.Close()
			return coreerr.Registry(err, "scanning dependency of %q", changeID)
		}
		if typ == "require" {
			reqs = append(reqs, dep)
		} else {
			cons = append(cons, dep)
		}
	}
	rows.Close()
	requires, conflicts = strings.Join(reqs, " "), strings.Join(cons, " ")

	var tagNames []string
	tagRows, err := tx.QueryContext(ctx, `SELECT tag FROM tags WHERE change_id = ?`, changeID)
	if err != nil {
		return coreerr.Registry(err, "reading tags anchored on %q before revert", changeID)
	}
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			tagRows.Close()
			return coreerr.Registry(err, "scanning tag anchored on %q", changeID)
		}
		tagNames = append(tagNames, tag)
	}
	tagRows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE change_id = ?`, changeID); err != nil {
		return coreerr.Registry(err, "deleting tags anchored on %q", changeID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE change_id = ?`, changeID); err != nil {
		return coreerr.Registry(err, "deleting dependencies of %q", changeID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM changes WHERE change_id = ?`, changeID); err != nil {
		return coreerr.Registry(err, "deleting change %q", changeID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event, change_id, change, project, note, requires, conflicts, tags,
			committed_at, committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES ('revert', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		changeID, change, r.Project, note, requires, conflicts, strings.Join(tagNames, " "),
		time.Now().UTC().Format("2006-01-02 15:04:05.000000"), committer.Name, committer.Email, plannedAt, plannerName, plannerEmail,
	)
	if err != nil {
		return coreerr.Registry(err, "recording revert event for %q", change)
	}

	if err := tx.Commit(); err != nil {
		return coreerr.Registry(err, "committing revert recording for %q", change)
	}
	return nil
}

// RecordDeployFail logs a failed deploy attempt without touching
// changes, so a retried deploy of the same change is unaffected.
func (r *Recorder) RecordDeployFail(ctx context.Context, changeID, change, reason string, committer Person) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO events (event, change_id, change, project, note, requires, conflicts, tags,
			committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES ('deploy_fail', ?, ?, ?, ?, '', '', '', ?, ?, ?, ?, ?)`,
		changeID, change, r.Project, reason,
		committer.Name, committer.Email, time.Now().UTC(), committer.Name, committer.Email,
	)
	if err != nil {
		return coreerr.Registry(err, "recording deploy_fail event for %q", change)
	}
	return nil
}

// RecordTag inserts a tags row anchoring tag on changeID.
func (r *Recorder) RecordTag(ctx context.Context, tagID, tag, changeID string, planner, committer Person, plannedAt time.Time, note string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO tags (tag_id, tag, project, change_id, note,
			committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tagID, tag, r.Project, changeID, note,
		committer.Name, committer.Email, plannedAt, planner.Name, planner.Email,
	)
	if err != nil {
		return coreerr.Registry(err, "recording tag %q", tag)
	}
	return nil
}

// DeployedChange is one row of deployed_changes.
type DeployedChange struct {
	ChangeID    string
	Name        string
	ScriptHash  string
	CommittedAt time.Time
}

// DeployedChanges returns every change currently deployed for
// r.Project, in deploy order.
func (r *Recorder) DeployedChanges(ctx context.Context) ([]DeployedChange, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT change_id, change, script_hash, committed_at FROM changes
		WHERE project = ? ORDER BY committed_at ASC`, r.Project)
	if err != nil {
		return nil, coreerr.Registry(err, "listing deployed changes for %q", r.Project)
	}
	defer rows.Close()

	var out []DeployedChange
	for rows.Next() {
		var dc DeployedChange
		var hash sql.NullString
		if err := rows.Scan(&dc.ChangeID, &dc.Name, &hash, &dc.CommittedAt); err != nil {
			return nil, coreerr.Registry(err, "scanning deployed change row")
		}
		dc.ScriptHash = hash.String
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Event is one row of the events table, used for status reporting.
type Event struct {
	Event       string
	ChangeID    string
	Change      string
	Note        string
	CommittedAt time.Time
}

// LastEvent returns the most recent event row for r.Project, or
// (Event{}, false, nil) if none exist yet.
func (r *Recorder) LastEvent(ctx context.Context) (Event, bool, error) {
	var e Event
	err := r.DB.QueryRowContext(ctx, `
		SELECT event, change_id, change, note, committed_at FROM events
		WHERE project = ? ORDER BY committed_at DESC LIMIT 1`, r.Project,
	).Scan(&e.Event, &e.ChangeID, &e.Change, &e.Note, &e.CommittedAt)
	if err == sql.ErrNoRows {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, coreerr.Registry(err, "reading last event for %q", r.Project)
	}
	return e, true, nil
}

// Events returns events for r.Project, most recent first, optionally
// filtered to a single change name.
func (r *Recorder) Events(ctx context.Context, changeFilter string) ([]Event, error) {
	query := `SELECT event, change_id, change, note, committed_at FROM events WHERE project = ?`
	args := []any{r.Project}
	if changeFilter != "" {
		query += ` AND change = ?`
		args = append(args, changeFilter)
	}
	query += ` ORDER BY committed_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreerr.Registry(err, "listing events for %q", r.Project)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Event, &e.ChangeID, &e.Change, &e.Note, &e.CommittedAt); err != nil {
			return nil, coreerr.Registry(err, "scanning event row")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
