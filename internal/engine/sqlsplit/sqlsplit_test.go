package sqlsplit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSimple(t *testing.T) {
	stmts := Split("CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);\n")
	require.Len(t, stmts, 2)
}

func TestSplitMultilineParens(t *testing.T) {
	sql := "CREATE TABLE a (\n    id INT,\n    CONSTRAINT ck CHECK (\n        id > 0\n    )\n);\nINSERT INTO a (id) VALUES (1);\n"
	stmts := Split(sql)
	require.Len(t, stmts, 2)
}

func TestSplitIgnoresSemicolonInString(t *testing.T) {
	stmts := Split("INSERT INTO a (note) VALUES ('a;b');\n")
	require.Len(t, stmts, 1)
}

func TestSplitDropsLineComments(t *testing.T) {
	stmts := Split("-- a comment\nCREATE TABLE a (id INT); -- trailing\n")
	require.Len(t, stmts, 1)
}

func TestSplitEmptyInput(t *testing.T) {
	require.Empty(t, Split("\n\n-- just a comment\n"))
}
