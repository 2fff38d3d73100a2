package agent

import (
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestMemoryAppendAndTrim(t *testing.T) {
	t.Parallel()

	// Budget of 50 estimated tokens = 100 runes.
	m := NewMemory(50, nil)

	long := strings.Repeat("a", 80) // 40 tokens
	m.Append(ai.NewUserMessage(ai.NewTextPart(long)))
	m.Append(ai.NewModelMessage(ai.NewTextPart(long)))

	// Two 40-token messages exceed the budget; the oldest is dropped.
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if got := m.Messages()[0].Role; got != ai.RoleModel {
		t.Errorf("surviving message role = %v, want the newest (model)", got)
	}
}

func TestMemoryKeepsNewestEvenOverBudget(t *testing.T) {
	t.Parallel()

	m := NewMemory(5, nil)
	huge := strings.Repeat("b", 500)
	m.Append(ai.NewUserMessage(ai.NewTextPart(huge)))

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want the newest message kept", m.Len())
	}
}

func TestMemoryWithinBudgetUntouched(t *testing.T) {
	t.Parallel()

	m := NewMemory(1000, nil)
	m.Append(
		ai.NewUserMessage(ai.NewTextPart("short question")),
		ai.NewModelMessage(ai.NewTextPart("short answer")),
	)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestMemoryMessagesDeepCopy(t *testing.T) {
	t.Parallel()

	m := NewMemory(1000, nil)
	m.Append(ai.NewUserMessage(ai.NewTextPart("original")))

	msgs := m.Messages()
	msgs[0].Content[0].Text = "mutated"

	if got := m.Messages()[0].Content[0].Text; got != "original" {
		t.Errorf("stored message mutated through copy: %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 2},
		{"你好世界", 2}, // 4 runes regardless of byte length
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
