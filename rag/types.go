// Package rag assembles prompts from retrieved context, streams the
// generated answer, and tracks citations and latency per turn.
package rag

import (
	"strings"
	"time"
)

// Citation points a reader at where an answer came from.
type Citation struct {
	Source  string
	Locator string
}

// Timings are the per-turn latency records. FirstToken is zero when the
// backend did not stream.
type Timings struct {
	Retrieval  time.Duration
	FirstToken time.Duration
	Generation time.Duration
	Total      time.Duration
}

// AnswerResult is what one question produces.
type AnswerResult struct {
	Text      string
	Citations []Citation
	Timings   Timings
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string
	Text string
}

// Session holds the ordered turns of one conversation. Append-only while the
// conversation lasts; Reset ends it.
type Session struct {
	turns []Turn
}

func (s *Session) Append(role, text string) {
	s.turns = append(s.turns, Turn{Role: role, Text: text})
}

func (s *Session) Turns() []Turn {
	return s.turns
}

func (s *Session) Reset() {
	s.turns = nil
}

// History serializes the session for the prompt. Assistant turns are elided
// to keep the prompt short; the model only needs what the user asked before.
func (s *Session) History() string {
	if len(s.turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(s.turns))
	for _, turn := range s.turns {
		switch turn.Role {
		case RoleUser:
			lines = append(lines, "用户: "+turn.Text)
		case RoleAssistant:
			lines = append(lines, "助手: [上一轮回答略]")
		}
	}
	return strings.Join(lines, "\n")
}

// CountChineseChars counts the CJK unified ideographs in s; the length
// policy and the performance readout are expressed in Chinese characters.
func CountChineseChars(s string) int {
	count := 0
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			count++
		}
	}
	return count
}
