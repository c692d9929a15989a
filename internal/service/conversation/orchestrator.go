package conversation

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sodelab/taxchat/backend/internal/model/chat"
	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
	"github.com/sodelab/taxchat/backend/internal/service/answer"
	"github.com/sodelab/taxchat/backend/internal/service/retrieval"
	"github.com/sodelab/taxchat/backend/internal/service/rewrite"
	"github.com/sodelab/taxchat/backend/internal/service/session"
)

// Orchestrator chains rewrite, reformulation, retrieval and generation into
// one request pipeline over the session store.
type Orchestrator struct {
	rewriter     *rewrite.Rewriter
	reformulator *retrieval.Reformulator
	retriever    *retrieval.Retriever
	generator    *answer.Generator
	sessions     *session.Store
	streaming    bool
}

// New wires the pipeline stages to the injected session store.
func New(rewriter *rewrite.Rewriter, reformulator *retrieval.Reformulator, retriever *retrieval.Retriever, generator *answer.Generator, sessions *session.Store, streaming bool) *Orchestrator {
	return &Orchestrator{
		rewriter:     rewriter,
		reformulator: reformulator,
		retriever:    retriever,
		generator:    generator,
		sessions:     sessions,
		streaming:    streaming,
	}
}

// Sessions exposes the injected store for transcript reads.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// StreamingEnabled reports whether answers should be delivered as fragment
// streams or as single complete messages.
func (o *Orchestrator) StreamingEnabled() bool {
	return o.streaming
}

// Answer runs the full pipeline for one question and returns the answer as a
// lazy fragment stream. The user turn is appended to the transcript before
// streaming begins, so a failed generation still records what was asked. The
// assistant turn is appended only after the stream is fully drained without
// error; partial fragments are never persisted.
func (o *Orchestrator) Answer(ctx context.Context, question, sessionID string) (*schema.StreamReader[string], error) {
	request, err := o.prepare(ctx, question, sessionID)
	if err != nil {
		return nil, err
	}

	stream, err := o.generator.Stream(ctx, request.standalone, request.history, request.passages)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err}
	}

	reader, writer := schema.Pipe[string](8)
	go o.pump(stream, writer, request.transcript)
	return reader, nil
}

// AnswerComplete runs the pipeline without streaming and returns the full
// answer. Used when streaming is disabled by configuration; transcript
// semantics match Answer.
func (o *Orchestrator) AnswerComplete(ctx context.Context, question, sessionID string) (string, error) {
	request, err := o.prepare(ctx, question, sessionID)
	if err != nil {
		return "", err
	}

	response, err := o.generator.Generate(ctx, request.standalone, request.history, request.passages)
	if err != nil {
		return "", &StageError{Stage: StageGenerate, Err: err}
	}

	request.transcript.Append(chat.RoleAssistant, response.Content)
	return response.Content, nil
}

// preparedRequest carries the pipeline state shared by both answer modes.
type preparedRequest struct {
	transcript *chat.Transcript
	history    []chat.Turn
	standalone string
	passages   []knowledge.Retrieved
}

// prepare runs the rewrite, reformulate and retrieve stages and records the
// user turn.
func (o *Orchestrator) prepare(ctx context.Context, question, sessionID string) (*preparedRequest, error) {
	normalized, err := o.rewriter.Rewrite(ctx, question)
	if err != nil {
		return nil, &StageError{Stage: StageRewrite, Err: err}
	}

	transcript := o.sessions.GetOrCreate(sessionID)
	history := transcript.Turns()

	standalone, err := o.reformulator.Reformulate(ctx, history, normalized)
	if err != nil {
		return nil, &StageError{Stage: StageReformulate, Err: err}
	}

	passages, err := o.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return nil, &StageError{Stage: StageRetrieve, Err: err}
	}

	// Record the question as submitted, before anything downstream can fail.
	transcript.Append(chat.RoleUser, question)

	log.Printf("[conversation] answering session=%s passages=%d standalone=%q", sessionID, len(passages), standalone)

	return &preparedRequest{
		transcript: transcript,
		history:    history,
		standalone: standalone,
		passages:   passages,
	}, nil
}

// pump copies model chunks into the outbound fragment pipe while
// accumulating the full answer for transcript persistence.
func (o *Orchestrator) pump(stream *schema.StreamReader[*schema.Message], writer *schema.StreamWriter[string], transcript *chat.Transcript) {
	defer writer.Close()
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writer.Send("", &StageError{Stage: StageGenerate, Err: err})
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		full.WriteString(chunk.Content)
		if closed := writer.Send(chunk.Content, nil); closed {
			// Consumer went away mid-stream; drop the partial answer.
			return
		}
	}

	transcript.Append(chat.RoleAssistant, full.String())
}
