package rag

import (
	"strings"
	"testing"

	"github.com/JxyV/Museum-RAG/index"
	"github.com/JxyV/Museum-RAG/llm"
)

func TestFormatContextTagsAndSeparator(t *testing.T) {
	page := 2
	results := []index.ScoredChunk{
		{Chunk: index.Chunk{SourceName: "museum.pdf", Page: &page, Text: "编钟出土于随州。"}},
		{Chunk: index.Chunk{SourceName: "food.txt", ChunkIndex: 4, Text: "热干面是武汉的代表小吃。"}},
	}

	got := FormatContext(results)
	want := "[museum.pdf | page 2]\n编钟出土于随州。\n\n---\n\n[food.txt | chunk 4]\n热干面是武汉的代表小吃。"
	if got != want {
		t.Fatalf("unexpected context:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatContextEmpty(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestBuildMessagesShape(t *testing.T) {
	messages := BuildMessages("曾侯乙编钟有多少件？", "用户: 你好\n助手: [上一轮回答略]", "[a.pdf | page 1]\n编钟介绍")
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role: %q", messages[0].Role)
	}
	if messages[1].Role != llm.RoleUser || messages[1].Content != "曾侯乙编钟有多少件？" {
		t.Fatalf("user message: %+v", messages[1])
	}
	if !strings.Contains(messages[0].Content, "用户: 你好") {
		t.Fatal("system message missing history")
	}
	if !strings.Contains(messages[0].Content, "[a.pdf | page 1]") {
		t.Fatal("system message missing retrieved context")
	}
}

func TestBuildMessagesIsPure(t *testing.T) {
	first := BuildMessages("q", "h", "c")
	second := BuildMessages("q", "h", "c")
	if first[0].Content != second[0].Content || first[1].Content != second[1].Content {
		t.Fatal("identical inputs must produce identical messages")
	}
}

func TestSessionHistoryElidesAssistantTurns(t *testing.T) {
	session := &Session{}
	if session.History() != "" {
		t.Fatal("fresh session should have empty history")
	}

	session.Append(RoleUser, "介绍一下越王勾践剑")
	session.Append(RoleAssistant, "越王勾践剑是……")
	session.Append(RoleUser, "它是什么时候出土的？")

	want := "用户: 介绍一下越王勾践剑\n助手: [上一轮回答略]\n用户: 它是什么时候出土的？"
	if got := session.History(); got != want {
		t.Fatalf("history:\n%q\nwant:\n%q", got, want)
	}

	session.Reset()
	if session.History() != "" {
		t.Fatal("reset session should have empty history")
	}
}

func TestCountChineseChars(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello world", 0},
		{"武汉", 2},
		{"武汉 hot dry noodles 热干面!", 5},
	}
	for _, tc := range cases {
		if got := CountChineseChars(tc.in); got != tc.want {
			t.Fatalf("CountChineseChars(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
