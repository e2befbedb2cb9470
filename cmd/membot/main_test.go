package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/rank"
)

func TestPrintScored(t *testing.T) {
	var buf bytes.Buffer
	printScored(&buf, []rank.Scored{
		{Text: "O céu é azul.", Score: 0.91234},
		{Text: "Gatos dormem muito.", Score: 0},
	})
	require.Equal(t, "O céu é azul. (score: 0.9123)\nGatos dormem muito. (score: 0.0000)\n", buf.String())
}

func TestMissingArgumentFails(t *testing.T) {
	for _, name := range []string{"rag", "search"} {
		cmd := newRootCmd()
		cmd.SetArgs([]string{name})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		require.Error(t, cmd.Execute(), name)
	}
}
