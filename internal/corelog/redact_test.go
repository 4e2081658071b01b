package corelog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactSensitiveKeys(t *testing.T) {
	in := map[string]any{
		"username":     "alice",
		"password":     "hunter2",
		"api_key":      "abc123",
		"AccessToken":  "xyz",
		"refresh-token": "qwe",
		"nested": map[string]any{
			"passphrase": "shh",
			"ok":         "fine",
		},
		"list": []any{
			map[string]any{"secret": "v"},
			"plain",
		},
	}

	out := Redact(in).(map[string]any)
	require.Equal(t, "alice", out["username"])
	require.Equal(t, redactedPlaceholder, out["password"])
	require.Equal(t, redactedPlaceholder, out["api_key"])
	require.Equal(t, redactedPlaceholder, out["AccessToken"])
	require.Equal(t, redactedPlaceholder, out["refresh-token"])

	nested := out["nested"].(map[string]any)
	require.Equal(t, redactedPlaceholder, nested["passphrase"])
	require.Equal(t, "fine", nested["ok"])

	list := out["list"].([]any)
	require.Equal(t, redactedPlaceholder, list[0].(map[string]any)["secret"])
	require.Equal(t, "plain", list[1])
}

func TestRedactURLPassword(t *testing.T) {
	in := "db:pg://user:s3cr3t@host:5432/db"
	got := redactString(in)
	require.Equal(t, "db:pg://user:"+redactedPlaceholder+"@host:5432/db", got)
}

func TestRedactOnlyMatchesKeysNotValues(t *testing.T) {
	in := map[string]any{"username": "contains the word password"}
	out := Redact(in).(map[string]any)
	require.Equal(t, "contains the word password", out["username"])
}
