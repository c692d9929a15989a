package answer_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/sodelab/taxchat/backend/internal/model/chat"
	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
	"github.com/sodelab/taxchat/backend/internal/model/lexicon"
	"github.com/sodelab/taxchat/backend/internal/service/answer"
)

// chunkedModel streams a scripted answer in fragments and records the
// rendered prompt.
type chunkedModel struct {
	chunks []string
	seen   []*schema.Message
}

func (m *chunkedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = input
	return schema.AssistantMessage(strings.Join(m.chunks, ""), nil), nil
}

func (m *chunkedModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.seen = input
	messages := make([]*schema.Message, len(m.chunks))
	for i, chunk := range m.chunks {
		messages[i] = schema.AssistantMessage(chunk, nil)
	}
	return schema.StreamReaderFromArray(messages), nil
}

func drain(t *testing.T, stream *schema.StreamReader[*schema.Message]) string {
	t.Helper()
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String()
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		full.WriteString(chunk.Content)
	}
}

func TestStreamConcatenatesFragments(t *testing.T) {
	fake := &chunkedModel{chunks: []string{"소득세법 제55조에 따르면, ", "기본세율은 과세표준 구간에 따라 ", "6%에서 45%까지 적용됩니다."}}
	generator, err := answer.NewGenerator(context.Background(), fake, lexicon.FewShots())
	if err != nil {
		t.Fatalf("NewGenerator err: %v", err)
	}

	stream, err := generator.Stream(context.Background(), "거주자의 소득세율은 얼마인가요?", nil, nil)
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}

	full := drain(t, stream)
	if !strings.HasPrefix(full, "소득세법") {
		t.Fatalf("expected statute citation prefix, got %q", full)
	}
	if !strings.Contains(full, "45%") {
		t.Fatalf("fragments lost during streaming: %q", full)
	}
}

func TestPromptLayout(t *testing.T) {
	fake := &chunkedModel{chunks: []string{"답변"}}
	examples := lexicon.FewShots()
	generator, err := answer.NewGenerator(context.Background(), fake, examples)
	if err != nil {
		t.Fatalf("NewGenerator err: %v", err)
	}

	history := []chat.Turn{
		{Role: chat.RoleUser, Content: "이전 질문"},
		{Role: chat.RoleAssistant, Content: "이전 답변"},
	}
	passages := []knowledge.Retrieved{
		{Content: "제55조 세율표", Source: "tax.md", Score: 0.9},
	}

	if _, err := generator.Generate(context.Background(), "질문", history, passages); err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	// system + few-shot pairs + history + question
	wantLen := 1 + len(examples)*2 + len(history) + 1
	if len(fake.seen) != wantLen {
		t.Fatalf("expected %d prompt messages, got %d", wantLen, len(fake.seen))
	}

	system := fake.seen[0]
	if system.Role != schema.System {
		t.Fatalf("expected leading system message, got %s", system.Role)
	}
	if !strings.Contains(system.Content, "소득세법 전문가") {
		t.Fatalf("system prompt missing expert identity: %q", system.Content)
	}
	if !strings.Contains(system.Content, "제55조 세율표") {
		t.Fatalf("system prompt missing retrieved context: %q", system.Content)
	}

	if fake.seen[1].Content != examples[0].Input {
		t.Fatalf("expected first few-shot input after system, got %q", fake.seen[1].Content)
	}

	last := fake.seen[len(fake.seen)-1]
	if last.Role != schema.User || last.Content != "질문" {
		t.Fatalf("expected trailing user question, got %+v", last)
	}
}

func TestGenerateWithoutPassages(t *testing.T) {
	fake := &chunkedModel{chunks: []string{"모르겠습니다."}}
	generator, err := answer.NewGenerator(context.Background(), fake, nil)
	if err != nil {
		t.Fatalf("NewGenerator err: %v", err)
	}

	response, err := generator.Generate(context.Background(), "질문", nil, nil)
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if response.Content == "" {
		t.Fatal("expected non-empty answer")
	}
}
