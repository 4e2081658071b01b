package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScriptHashTrimsTrailingWhitespace(t *testing.T) {
	a := ScriptHash([]byte("CREATE TABLE x (id INT);   \n"))
	b := ScriptHash([]byte("CREATE TABLE x (id INT);\n"))
	require.Equal(t, a, b)
}

func TestScriptHashDeterministic(t *testing.T) {
	script := []byte("CREATE TABLE users (id INT PRIMARY KEY);\n")
	require.Equal(t, ScriptHash(script), ScriptHash(script))
}

func TestScriptHashDiffersOnContentChange(t *testing.T) {
	a := ScriptHash([]byte("CREATE TABLE a (id INT);\n"))
	b := ScriptHash([]byte("CREATE TABLE b (id INT);\n"))
	require.NotEqual(t, a, b)
}
