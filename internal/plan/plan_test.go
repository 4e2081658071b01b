package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const samplePlan = `%syntax-version=1.0.0
%project=flipr
%uri=https://github.com/sqitchers/sqitch-sqlite-intro/

users 2025-01-01T00:00:00Z Alice <alice@example.com> # Creates users table.
flips [users] 2025-01-02T00:00:00Z Alice <alice@example.com> # Adds flips table.
@v1.0 2025-01-03T00:00:00Z Alice <alice@example.com> # First release.
`

func TestParseSample(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)
	require.Equal(t, "flipr", p.Project)
	require.Equal(t, "https://github.com/sqitchers/sqitch-sqlite-intro/", p.URI)
	require.Len(t, p.Entries, 3)

	changes := p.Changes()
	require.Len(t, changes, 2)
	require.Equal(t, "users", changes[0].Name)
	require.Equal(t, "flips", changes[1].Name)
	require.Equal(t, []Dependency{{Name: "users"}}, changes[1].Dependencies)
	require.Equal(t, "Creates users table.", changes[0].Note)

	tags := p.Tags()
	require.Len(t, tags, 1)
	require.Equal(t, "v1.0", tags[0].Name)
	require.Equal(t, "flips", tags[0].ChangeRef)
	require.Equal(t, changes[1].ChangeID, tags[0].ChangeID)

	// change_id is deterministic and non-empty.
	require.Len(t, changes[0].ChangeID, 40)
	require.Equal(t, "", changes[0].ParentID)
	require.Equal(t, changes[0].ChangeID, changes[1].ParentID)
}

func TestRoundTripByteExact(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)
	out := Format(p)
	require.Equal(t, samplePlan, out)
}

func TestChangeIDDeterminism(t *testing.T) {
	p1, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)
	p2, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)

	for i := range p1.Changes() {
		require.Equal(t, p1.Changes()[i].ChangeID, p2.Changes()[i].ChangeID)
	}
}

func TestTagCannotBeFirstEntry(t *testing.T) {
	bad := "%project=flipr\n\n@v1.0 2025-01-01T00:00:00Z Alice <alice@example.com>\n"
	_, err := Parse(strings.NewReader(bad), Options{})
	require.Error(t, err)
}

func TestDuplicateChangeNameBetweenTagsRejected(t *testing.T) {
	bad := "%project=flipr\n\n" +
		"users 2025-01-01T00:00:00Z Alice <alice@example.com>\n" +
		"users 2025-01-02T00:00:00Z Alice <alice@example.com>\n"
	_, err := Parse(strings.NewReader(bad), Options{})
	require.Error(t, err)
}

func TestReworkAfterTagProducesDistinctChangeID(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)

	original := p.LastChangeNamed("flips")
	next, err := Rework(p, "flips", "Alice <alice@example.com>", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "Reworks flips.")
	require.NoError(t, err)
	require.NotEqual(t, original.ChangeID, next.ChangeID)

	all := p.Changes()
	require.Len(t, all, 3)
	require.Equal(t, "flips", all[2].Name)
}

func TestReworkWithoutInterveningTagRejected(t *testing.T) {
	noTag := "%project=flipr\n\nusers 2025-01-01T00:00:00Z Alice <alice@example.com>\n"
	p, err := Parse(strings.NewReader(noTag), Options{})
	require.NoError(t, err)
	_, err = Rework(p, "users", "Alice <alice@example.com>", time.Now(), "")
	require.Error(t, err)
}

func TestSymbolicReferences(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan), Options{})
	require.NoError(t, err)

	headIdx, err := Resolve(p, "@HEAD")
	require.NoError(t, err)
	require.Equal(t, "flips", p.Entries[headIdx].Change.Name)

	rootIdx, err := Resolve(p, "@ROOT")
	require.NoError(t, err)
	require.Equal(t, "users", p.Entries[rootIdx].Change.Name)

	tagIdx, err := Resolve(p, "@v1.0")
	require.NoError(t, err)
	require.Equal(t, "flips", p.Entries[tagIdx].Change.Name)

	prevIdx, err := Resolve(p, "@HEAD^")
	require.NoError(t, err)
	require.Equal(t, "users", p.Entries[prevIdx].Change.Name)

	_, err = Resolve(p, "@HEAD^5")
	require.Error(t, err)

	byName, err := Resolve(p, "users")
	require.NoError(t, err)
	require.Equal(t, "users", p.Entries[byName].Change.Name)
}

func TestInvalidProjectName(t *testing.T) {
	bad := "%project=1bad\n\nusers 2025-01-01T00:00:00Z Alice <alice@example.com>\n"
	_, err := Parse(strings.NewReader(bad), Options{})
	require.Error(t, err)
}
