package summarizer

import "fmt"

// Prompt 表示发送给 LLM 的一组消息：一条 system 指令和一条 user 正文。
type Prompt struct {
	System string
	User   string
}

// BuildSummaryPrompt 生成单句摘要提示词。
func BuildSummaryPrompt(language string, maxChars int, body string) Prompt {
	system := fmt.Sprintf(
		"你是一个专业的新闻编辑。请将用户输入的新闻内容总结为一句简练的%s摘要（%d字以内），重点突出核心事实，不要添加评论或额外说明。",
		language, maxChars)
	return Prompt{
		System: system,
		User:   body,
	}
}
