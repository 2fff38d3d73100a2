package agent

import (
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"

	"github.com/koopa0/sysagent/internal/log"
)

// Memory is the bounded conversation transcript. It lives for the process
// only; nothing is persisted. When the estimated token count exceeds the
// budget, the oldest messages are dropped first.
//
// Memory is owned by a single Agent and mutated once per turn; it is not
// safe for concurrent use.
type Memory struct {
	maxTokens int
	messages  []*ai.Message
	logger    *log.Logger
}

// NewMemory creates a transcript bounded to maxTokens estimated tokens.
func NewMemory(maxTokens int, logger *log.Logger) *Memory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Memory{maxTokens: maxTokens, logger: logger}
}

// Messages returns a deep copy of the transcript. Genkit mutates message
// content in place while rendering, so sharing the stored messages across
// turns would corrupt history.
func (m *Memory) Messages() []*ai.Message {
	return deepCopyMessages(m.messages)
}

// Len reports the number of stored messages.
func (m *Memory) Len() int {
	return len(m.messages)
}

// Append records messages from a completed turn and re-applies the budget.
func (m *Memory) Append(msgs ...*ai.Message) {
	m.messages = append(m.messages, msgs...)
	m.trim()
}

// trim drops oldest messages until the transcript fits the budget. The
// newest message is always kept, even when it alone exceeds the budget.
func (m *Memory) trim() {
	total := estimateMessagesTokens(m.messages)
	if total <= m.maxTokens {
		return
	}

	dropped := 0
	for len(m.messages) > 1 && total > m.maxTokens {
		total -= estimateMessagesTokens(m.messages[:1])
		m.messages = m.messages[1:]
		dropped++
	}

	m.logger.Debug("conversation memory trimmed",
		"dropped", dropped, "kept", len(m.messages), "budget", m.maxTokens)
}

// estimateTokens provides a rough token count. Rune count divided by 2 is a
// conservative estimate covering both English (~4 chars/token) and CJK
// (~1.5 chars/token) text.
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// estimateMessagesTokens estimates total tokens across messages.
func estimateMessagesTokens(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		for _, part := range msg.Content {
			total += estimateTokens(part.Text)
		}
	}
	return total
}

// deepCopyMessages copies messages and their content slices.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	out := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		cp.Content = make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			p := *part
			cp.Content[j] = &p
		}
		out[i] = &cp
	}
	return out
}
