package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
	"github.com/sodelab/taxchat/backend/internal/model/lexicon"
	"github.com/sodelab/taxchat/backend/internal/service/answer"
	"github.com/sodelab/taxchat/backend/internal/service/conversation"
	"github.com/sodelab/taxchat/backend/internal/service/retrieval"
	"github.com/sodelab/taxchat/backend/internal/service/rewrite"
	"github.com/sodelab/taxchat/backend/internal/service/session"
)

type echoModel struct{}

func (m *echoModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(input[len(input)-1].Content, nil), nil
}

func (m *echoModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage(input[len(input)-1].Content, nil),
	}), nil
}

type chunkedModel struct {
	chunks []string
}

func (m *chunkedModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(strings.Join(m.chunks, ""), nil), nil
}

func (m *chunkedModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	messages := make([]*schema.Message, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		messages = append(messages, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(messages), nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeSearcher struct{}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, _ int) ([]knowledge.Retrieved, error) {
	return []knowledge.Retrieved{
		{Content: "소득세법 제55조 세율표", Source: "tax.md", Score: 0.9},
	}, nil
}

func newTestServer(t *testing.T, generatorModel model.BaseChatModel, streaming bool) (*httptest.Server, *session.Store) {
	t.Helper()
	ctx := context.Background()

	rewriter, err := rewrite.New(ctx, &echoModel{}, lexicon.Dictionary())
	if err != nil {
		t.Fatalf("rewrite.New err: %v", err)
	}
	reformulator, err := retrieval.NewReformulator(ctx, &echoModel{})
	if err != nil {
		t.Fatalf("NewReformulator err: %v", err)
	}
	generator, err := answer.NewGenerator(ctx, generatorModel, lexicon.FewShots())
	if err != nil {
		t.Fatalf("NewGenerator err: %v", err)
	}

	sessions := session.NewStore()
	orchestrator := conversation.New(
		rewriter,
		reformulator,
		retrieval.NewRetriever(&fakeEmbedder{}, &fakeSearcher{}),
		generator,
		sessions,
		streaming,
	)

	router := chi.NewRouter()
	New(orchestrator).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilMessage collects frames up to and including the final message
// frame.
func readUntilMessage(t *testing.T, conn *websocket.Conn) []outboundFrame {
	t.Helper()
	var frames []outboundFrame
	for {
		var frame outboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read err: %v", err)
		}
		frames = append(frames, frame)
		if frame.Type == "message" || frame.Type == "error" {
			return frames
		}
	}
}

func TestWebSocketStreamsAnswer(t *testing.T) {
	srv, sessions := newTestServer(t, &chunkedModel{chunks: []string{"소득세법 제3조에 따르면, ", "종합소득세가 부과됩니다."}}, true)
	conn := dial(t, srv, "session-1")

	if err := conn.WriteJSON(inboundFrame{Type: "chat", Message: "사람에게 부과되는 세금은 뭐야"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	frames := readUntilMessage(t, conn)
	final := frames[len(frames)-1]
	if final.Type != "message" || !strings.HasPrefix(final.Content, "소득세법") {
		t.Fatalf("unexpected final frame: %+v", final)
	}

	deltas := 0
	for _, frame := range frames {
		if frame.Type == "delta" {
			deltas++
		}
	}
	if deltas == 0 {
		t.Fatal("expected delta frames before the final message")
	}

	if sessions.GetOrCreate("session-1").Len() != 2 {
		t.Fatal("expected user and assistant turns persisted")
	}
}

func TestWebSocketStreamingDisabledSendsSingleMessage(t *testing.T) {
	srv, sessions := newTestServer(t, &chunkedModel{chunks: []string{"소득세법 제3조에 따르면, ", "종합소득세가 부과됩니다."}}, false)
	conn := dial(t, srv, "session-1")

	if err := conn.WriteJSON(inboundFrame{Type: "chat", Message: "사람에게 부과되는 세금은 뭐야"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	frames := readUntilMessage(t, conn)
	if len(frames) != 1 {
		t.Fatalf("expected a single frame with streaming disabled, got %+v", frames)
	}
	if frames[0].Type != "message" {
		t.Fatalf("expected message frame, got %+v", frames[0])
	}
	if frames[0].Content != "소득세법 제3조에 따르면, 종합소득세가 부과됩니다." {
		t.Fatalf("unexpected answer content: %q", frames[0].Content)
	}

	if sessions.GetOrCreate("session-1").Len() != 2 {
		t.Fatal("expected user and assistant turns persisted")
	}
}
