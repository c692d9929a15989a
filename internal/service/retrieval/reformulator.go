package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sodelab/taxchat/backend/internal/model/chat"
)

const contextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// Reformulator turns a follow-up question into a standalone question that
// retrieval can handle without the surrounding conversation.
type Reformulator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewReformulator compiles the contextualization chain.
func NewReformulator(ctx context.Context, chatModel model.BaseChatModel) (*Reformulator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(contextualizePrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reformulation chain: %w", err)
	}

	return &Reformulator{chain: runnable}, nil
}

// Reformulate produces a standalone question. With no history there is
// nothing to contextualize, so the question passes through without a model
// call.
func (r *Reformulator) Reformulate(ctx context.Context, history []chat.Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	response, err := r.chain.Invoke(ctx, map[string]any{
		"history":  chat.Messages(history),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run reformulation chain: %w", err)
	}

	standalone := strings.TrimSpace(response.Content)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}
