package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sodelab/taxchat/backend/internal/model/lexicon"
)

// ErrEmptyQuestion is returned when a blank question reaches the rewriter.
var ErrEmptyQuestion = errors.New("question must not be empty")

const instructionTemplate = "사용자의 질문을 보고, 우리의 사전을 참고해서 사용자의 질문을 변경해주세요. " +
	"만약 변경할 필요가 없다고 판단되면, 사용자의 질문을 변경하지 말고 질문만 그대로 리턴해주세요. " +
	"질문 외의 다른 설명은 출력하지 마세요.\n사전: %s"

// Rewriter normalizes raw questions against the statutory synonym dictionary
// before they enter the retrieval pipeline.
type Rewriter struct {
	dictionary []lexicon.SynonymEntry
	chain      compose.Runnable[map[string]any, *schema.Message]
}

// New compiles the dictionary rewrite chain over the supplied chat model.
func New(ctx context.Context, chatModel model.BaseChatModel, dictionary []lexicon.SynonymEntry) (*Rewriter, error) {
	lines := make([]string, 0, len(dictionary))
	for _, entry := range dictionary {
		lines = append(lines, entry.PromptLine())
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(fmt.Sprintf(instructionTemplate, strings.Join(lines, ", "))),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rewrite chain: %w", err)
	}

	return &Rewriter{dictionary: dictionary, chain: runnable}, nil
}

// ApplyDictionary performs the literal substitutions from the synonym table.
func ApplyDictionary(question string, dictionary []lexicon.SynonymEntry) string {
	for _, entry := range dictionary {
		question = strings.ReplaceAll(question, entry.Pattern, entry.Replacement)
	}
	return question
}

// Rewrite substitutes dictionary patterns into the question and passes the
// result through the model for a final normalization check. Model failures
// propagate unmodified; there is no fallback to the raw question.
func (r *Rewriter) Rewrite(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	substituted := ApplyDictionary(question, r.dictionary)

	response, err := r.chain.Invoke(ctx, map[string]any{"question": substituted})
	if err != nil {
		return "", fmt.Errorf("failed to run rewrite chain: %w", err)
	}

	normalized := strings.TrimSpace(response.Content)
	if normalized == "" {
		// Empty model output falls back to the locally substituted question.
		return substituted, nil
	}
	return normalized, nil
}
