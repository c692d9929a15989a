package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sodelab/taxchat/backend/internal/model/chat"
	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
	"github.com/sodelab/taxchat/backend/internal/model/lexicon"
)

const systemPrompt = "당신은 소득세법 전문가입니다. 사용자의 소득세법에 관한 질문에 답변해주세요. " +
	"아래에 제공된 문서를 활용해서 답변해주시고, " +
	"답변을 알 수 없다면 모른다고 답변해주세요. " +
	"답변을 제공할 때는 소득세법 (XX조)에 따르면 이라고 시작하면서 답변해주시고, " +
	"2-3 문장 정도의 짧은 내용의 답변을 원합니다." +
	"\n\n{context}"

// Generator produces grounded answers from retrieved passages, conversation
// history and a standalone question.
type Generator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewGenerator compiles the answer chain. Few-shot examples are baked into
// the template as fixed prior turns so they prime style without ever touching
// a real transcript.
func NewGenerator(ctx context.Context, chatModel model.BaseChatModel, examples []lexicon.FewShotExample) (*Generator, error) {
	templates := make([]schema.MessagesTemplate, 0, len(examples)*2+3)
	templates = append(templates, schema.SystemMessage(systemPrompt))
	for _, example := range examples {
		templates = append(templates,
			schema.UserMessage(example.Input),
			schema.AssistantMessage(example.Answer, nil),
		)
	}
	templates = append(templates,
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{question}"),
	)

	promptTemplate := prompt.FromMessages(schema.FString, templates...)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}

	return &Generator{chain: runnable}, nil
}

// Stream produces the answer as a lazy fragment stream.
func (g *Generator) Stream(ctx context.Context, question string, history []chat.Turn, passages []knowledge.Retrieved) (*schema.StreamReader[*schema.Message], error) {
	stream, err := g.chain.Stream(ctx, chainInput(question, history, passages))
	if err != nil {
		return nil, fmt.Errorf("failed to stream answer chain: %w", err)
	}
	return stream, nil
}

// Generate produces the complete answer in one call.
func (g *Generator) Generate(ctx context.Context, question string, history []chat.Turn, passages []knowledge.Retrieved) (*schema.Message, error) {
	response, err := g.chain.Invoke(ctx, chainInput(question, history, passages))
	if err != nil {
		return nil, fmt.Errorf("failed to run answer chain: %w", err)
	}
	return response, nil
}

func chainInput(question string, history []chat.Turn, passages []knowledge.Retrieved) map[string]any {
	return map[string]any{
		"context":  joinPassages(passages),
		"history":  chat.Messages(history),
		"question": question,
	}
}

func joinPassages(passages []knowledge.Retrieved) string {
	if len(passages) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, passage := range passages {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(passage.Content)
		if passage.Source != "" {
			builder.WriteString(fmt.Sprintf("\n(출처: %s)", passage.Source))
		}
	}
	return builder.String()
}
