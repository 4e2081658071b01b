package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEnv map[string]string

func (f fakeEnv) Get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestResolveCLIWins(t *testing.T) {
	id, err := Resolve(fakeEnv{"SQLITCH_FULLNAME": "Env Name", "SQLITCH_EMAIL": "env@example.com"}, nil, "CLI Name", "cli@example.com")
	require.NoError(t, err)
	require.Equal(t, "CLI Name", id.Name)
	require.Equal(t, "cli@example.com", id.Email)
}

func TestResolveSQLitchWinsOverSqitchEnv(t *testing.T) {
	id, err := Resolve(fakeEnv{
		"SQLITCH_FULLNAME": "SQLitch Name",
		"SQITCH_FULLNAME":  "Sqitch Name",
		"SQLITCH_EMAIL":    "a@example.com",
	}, nil, "", "")
	require.NoError(t, err)
	require.Equal(t, "SQLitch Name", id.Name)
}

func TestResolveMissingEmailIsError(t *testing.T) {
	_, err := Resolve(fakeEnv{}, nil, "Name Only", "")
	require.Error(t, err)
}

func TestStringRendersAngleBrackets(t *testing.T) {
	id := Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	require.Equal(t, "Ada Lovelace <ada@example.com>", id.String())
}
