package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/rank"
)

func TestAssembleFullLayout(t *testing.T) {
	a := NewAssembler(DefaultLabels())
	out := a.Assemble("and now?",
		[]model.Turn{
			{UserText: "", AssistantText: "Hi, I'm Bob!"},
			{UserText: "hello", AssistantText: "hey there", HasUserText: true},
		},
		[]model.Summary{{Text: "older talk"}, {Text: "newer talk"}},
		[]rank.Scored{{Text: "The sky is blue.", Score: 0.9}},
	)
	want := "Summary: older talk\nSummary: newer talk\n\n" +
		"Bot: Hi, I'm Bob!\nUser: hello\nBot: hey there\n\n" +
		"Retrieved context:\n- The sky is blue.\n\n" +
		"User: and now?\nBot: "
	require.Equal(t, want, out)
}

func TestAssembleOnlyInput(t *testing.T) {
	a := NewAssembler(DefaultLabels())
	require.Equal(t, "User: hi\nBot: ", a.Assemble("hi", nil, nil, nil))
}

func TestAssembleCustomLabels(t *testing.T) {
	a := NewAssembler(AssemblerLabels{Summary: "Resumo: ", User: "Você: ", Bot: "Bob: ", Retrieved: "Contexto:"})
	out := a.Assemble("oi", nil, []model.Summary{{Text: "s"}}, []rank.Scored{{Text: "x"}})
	require.Equal(t, "Resumo: s\n\nContexto:\n- x\n\nVocê: oi\nBob: ", out)
}
