package rag

import (
	"fmt"
	"strings"

	"github.com/JxyV/Museum-RAG/index"
	"github.com/JxyV/Museum-RAG/llm"
)

// systemPolicy is the fixed answering policy. The length rules form a
// declarative table the model is told to follow:
//
//	explicit N-character request -> [0.9N, 1.1N]
//	"简短"/"简要"                -> at most 100 characters
//	"详细"                       -> 300-500 characters
//	no requirement               -> 150-300 characters
const systemPolicy = "你是一个熟悉湖北省武汉市和湖北博物馆的历史文化、美食、旅游、风土人情的知识助手，能够结合提供的文档内容和自身知识进行自然、准确的快速地回答，注意一定要严格按照提问者的要求进行回答，且不要进行思考。/no_think\n\n" +
	"你的任务是：\n" +
	"- 优先参考我提供的文档内容（即上下文）回答问题；\n" +
	"- 如果文档信息不足或缺失，可以适当补充你自身掌握的可靠知识，回答的内容不要过少；\n" +
	"- **严格按照用户要求的字数或长度进行回答**，如果用户指定了字数（如'200字'、'500字'、'简短回答'等），请严格控制输出长度；\n" +
	"- **不要输出任何思考过程、解释、格式说明或AI语气的语句**；\n" +
	"- **直接输出自然、口语化的中文回答正文**，像一个知识丰富的当地人那样娓娓道来。\n" +
	"- **请务必保证措辞合理、逻辑通顺、语义信息完整**。\n\n" +
	"字数控制要求：\n" +
	"- 如果用户要求'200字'，回答应控制在180-220字之间；\n" +
	"- 如果用户要求'500字'，回答应控制在450-550字之间；\n" +
	"- 如果用户要求'a字'，回答应控制在0.9a-1.1a字之间；\n" +
	"- 如果用户要求'简短'或'简要'，回答应控制在100字以内；\n" +
	"- 如果用户要求'详细'，回答可以适当展开到300-500字；\n" +
	"- 如果没有明确字数要求，回答控制在150-300字之间。\n\n" +
	"对话上下文（可能为空）：\n%s\n\n" +
	"现在请根据以下背景资料回答用户的问题：\n%s"

const contextSeparator = "\n\n---\n\n"

// FormatContext concatenates retrieved chunks for the prompt, each prefixed
// with its [sourceName | locator] tag.
func FormatContext(results []index.ScoredChunk) string {
	blocks := make([]string, 0, len(results))
	for _, result := range results {
		blocks = append(blocks, fmt.Sprintf("[%s | %s]\n%s",
			result.Chunk.SourceName, Locator(result.Chunk), result.Chunk.Text))
	}
	return strings.Join(blocks, contextSeparator)
}

// BuildMessages is the prompt assembler: a pure function of the retrieved
// context, the serialized history, and the raw question. It performs no
// retrieval itself.
func BuildMessages(question, history, context string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPolicy, history, context)},
		{Role: llm.RoleUser, Content: question},
	}
}
