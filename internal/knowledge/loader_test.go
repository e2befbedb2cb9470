package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTextSkipsBlankLines(t *testing.T) {
	path := writeFile(t, "knowledge.txt", "  O céu é azul.  \n\n\t\nGatos dormem muito.\r\n")
	lines, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"O céu é azul.", "Gatos dormem muito."}, lines)
}

func TestLoadMarkdown(t *testing.T) {
	src := "# Cats\n\nCats *sleep* a lot,\nup to 16 hours.\n\n- they purr\n- they `hunt`\n\n```\ncode is skipped\n```\n"
	lines, err := Load(writeFile(t, "kb.md", src))
	require.NoError(t, err)
	require.Equal(t, []string{
		"Cats",
		"Cats sleep a lot, up to 16 hours.",
		"they purr",
		"they hunt",
	}, lines)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, ErrCorpusLoad)

	_, err = Load(writeFile(t, "empty.txt", "\n   \n"))
	require.ErrorIs(t, err, ErrCorpusLoad)
}

func TestLoadTextRejectsOversizedLine(t *testing.T) {
	src := "first\n" + strings.Repeat("x", 2*1024*1024) + "\nthird\n"
	lines, err := Load(writeFile(t, "knowledge.txt", src))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorpusLoad))
	require.Nil(t, lines)
}
