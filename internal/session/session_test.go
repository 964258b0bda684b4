package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"interviewer/internal/ai"
	"interviewer/internal/config"
	"interviewer/internal/conversation"
	"interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/ingest"
	"interviewer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

type scriptedOrchestrator struct {
	questions     types.QuestionSet
	questionsErr  error
	questionCalls atomic.Int32
	analysisCalls atomic.Int32
	analysisTurns []history.Turn
	analysisErr   error
	release       chan struct{}
}

func (o *scriptedOrchestrator) GenerateQuestions(ctx context.Context, _ types.Documents) (types.QuestionSet, *ai.TokenUsage, error) {
	o.questionCalls.Add(1)
	if o.release != nil {
		select {
		case <-o.release:
		case <-ctx.Done():
			return types.QuestionSet{}, nil, ctx.Err()
		}
	}
	if o.questionsErr != nil {
		return types.QuestionSet{}, nil, o.questionsErr
	}
	return o.questions, &ai.TokenUsage{TotalTokens: 3}, nil
}

func (o *scriptedOrchestrator) GenerateAnalysis(_ context.Context, _ types.Documents, turns []history.Turn) (types.AnalysisReport, *ai.TokenUsage, error) {
	o.analysisCalls.Add(1)
	o.analysisTurns = turns
	if o.analysisErr != nil {
		return types.AnalysisReport{}, nil, o.analysisErr
	}
	return types.AnalysisReport{Summary: "fit", FitScore: 75}, nil, nil
}

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (c *scriptedCompleter) Complete(context.Context, []ai.Message) (string, *ai.TokenUsage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", nil, c.errs[i]
	}
	return c.replies[i], nil, nil
}

type countingRecorder struct {
	mu     sync.Mutex
	ops    map[string]int
	events map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: map[string]int{}, events: map[string]int{}}
}

func (r *countingRecorder) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	r.mu.Lock()
	r.ops[operation]++
	r.mu.Unlock()
	_, err := fn(ctx)
	return err
}

func (r *countingRecorder) RecordInterviewEvent(_ context.Context, event string, success bool) {
	if !success {
		return
	}
	r.mu.Lock()
	r.events[event]++
	r.mu.Unlock()
}

func testTimeouts() config.SessionConfig {
	return config.SessionConfig{
		StartTimeout:    time.Second,
		SendTimeout:     time.Second,
		AnalysisTimeout: time.Second,
		IdleTimeout:     time.Minute,
		ReapInterval:    time.Minute,
		MaxSessions:     10,
	}
}

func newTestSession(t *testing.T, orch ai.Orchestrator, completer ai.ChatCompleter) *Session {
	t.Helper()
	return New("test", Dependencies{
		Orchestrator: orch,
		Processor:    conversation.NewProcessor(completer, testLogger),
		Logger:       testLogger,
	}, testTimeouts())
}

func ingestPair(t *testing.T) *ingest.Pair {
	t.Helper()
	ing := ingest.NewIngestor(t.TempDir(), 0, testLogger)
	pair, err := ing.Ingest("test",
		ingest.Upload{Name: "jd.txt", Reader: strings.NewReader("Go developer")},
		ingest.Upload{Name: "cv.pdf", Reader: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	return pair
}

func startedSession(t *testing.T, completer ai.ChatCompleter) (*Session, *scriptedOrchestrator) {
	t.Helper()
	orch := &scriptedOrchestrator{questions: types.QuestionSet{Questions: []string{"Q1", "Q2"}}}
	s := newTestSession(t, orch, completer)
	require.NoError(t, s.AttachDocuments(ingestPair(t)))
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	return s, orch
}

func TestStartRequiresDocuments(t *testing.T) {
	orch := &scriptedOrchestrator{questions: types.QuestionSet{Questions: []string{"Q1"}}}
	s := newTestSession(t, orch, &scriptedCompleter{})

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrDocumentsMissing)
	assert.Equal(t, StateNotStarted, s.State())
	assert.Zero(t, orch.questionCalls.Load())
}

func TestStartGeneratesQuestionsOnce(t *testing.T) {
	s, orch := startedSession(t, &scriptedCompleter{})
	assert.Equal(t, StateInProgress, s.State())

	qs, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, qs.Questions)
	assert.Equal(t, int32(1), orch.questionCalls.Load())
}

func TestStartFailureLeavesStateUnchanged(t *testing.T) {
	orch := &scriptedOrchestrator{questionsErr: stderrors.New("quota")}
	s := newTestSession(t, orch, &scriptedCompleter{})
	require.NoError(t, s.AttachDocuments(ingestPair(t)))

	_, err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
	assert.Equal(t, StateNotStarted, s.State())

	orch.questionsErr = nil
	orch.questions = types.QuestionSet{Questions: []string{"Q1"}}
	_, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, s.State())
}

func TestStartTimeoutIsRecoverable(t *testing.T) {
	orch := &scriptedOrchestrator{release: make(chan struct{})}
	s := New("test", Dependencies{
		Orchestrator: orch,
		Processor:    conversation.NewProcessor(&scriptedCompleter{}, testLogger),
		Logger:       testLogger,
	}, config.SessionConfig{StartTimeout: 10 * time.Millisecond, SendTimeout: time.Second, AnalysisTimeout: time.Second})
	require.NoError(t, s.AttachDocuments(ingestPair(t)))

	_, err := s.Start(context.Background())
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAITimeout, appErr.Code)
	assert.Equal(t, StateNotStarted, s.State())
}

func TestConcurrentStartIsGuarded(t *testing.T) {
	orch := &scriptedOrchestrator{
		questions: types.QuestionSet{Questions: []string{"Q1"}},
		release:   make(chan struct{}),
	}
	s := newTestSession(t, orch, &scriptedCompleter{})
	require.NoError(t, s.AttachDocuments(ingestPair(t)))

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background())
		firstDone <- err
	}()

	require.Eventually(t, func() bool { return orch.questionCalls.Load() == 1 }, time.Second, time.Millisecond)

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrActionInProgress)
	assert.Contains(t, s.Snapshot().Busy, ActionStart)

	close(orch.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), orch.questionCalls.Load())
}

func TestSendRequiresStart(t *testing.T) {
	s := newTestSession(t, &scriptedOrchestrator{}, &scriptedCompleter{replies: []string{"Q1"}})
	_, err := s.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Empty(t, s.History())
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{replies: []string{"Q1"}})
	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.History())
}

func TestInterviewUnlocksAnalysisAfterClosingPhrase(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"Q1", "Q2", "Thank You"}}
	s, _ := startedSession(t, completer)

	for i, msg := range []string{"hello", "answer one", "answer two"} {
		res, err := s.Send(context.Background(), msg)
		require.NoError(t, err)
		if i < 2 {
			assert.False(t, res.AnalysisUnlocked, "turn %d", i)
			assert.Equal(t, StateInProgress, s.State())
		} else {
			assert.True(t, res.AnalysisUnlocked)
			assert.Equal(t, StateAnalysisUnlocked, s.State())
		}
	}

	turns := s.History()
	require.Len(t, turns, 6)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, history.RoleUser, turn.Role)
		} else {
			assert.Equal(t, history.RoleAssistant, turn.Role)
		}
	}
	assert.Equal(t, "Thank You", turns[5].Content)
}

func TestAnalysisUnlockIsCaseSensitive(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{replies: []string{"thank you"}})
	res, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.False(t, res.AnalysisUnlocked)
	assert.Equal(t, StateInProgress, s.State())
}

func TestUnlockNeverReverts(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{replies: []string{"Thank You", "one more question?"}})
	_, err := s.Send(context.Background(), "a")
	require.NoError(t, err)
	res, err := s.Send(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, res.AnalysisUnlocked)
	assert.Equal(t, StateAnalysisUnlocked, s.State())
}

func TestFailedSendLeavesHistoryUnchanged(t *testing.T) {
	completer := &scriptedCompleter{
		replies: []string{"Q1", "", "Q2"},
		errs:    []error{nil, stderrors.New("upstream 503")},
	}
	s, _ := startedSession(t, completer)

	_, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Send(context.Background(), "answer")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAI))
	after := s.Snapshot()
	assert.Equal(t, before.History, after.History)
	assert.Equal(t, before.State, after.State)

	_, err = s.Send(context.Background(), "answer")
	require.NoError(t, err)
	assert.Len(t, s.History(), 4)
}

func TestGenerateAnalysisRequiresUnlock(t *testing.T) {
	s, orch := startedSession(t, &scriptedCompleter{replies: []string{"Q1"}})
	_, err := s.GenerateAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrAnalysisLocked)

	_, err = s.Send(context.Background(), "hello")
	require.NoError(t, err)
	_, err = s.GenerateAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrAnalysisLocked)
	assert.Zero(t, orch.analysisCalls.Load())
}

func TestGenerateAnalysis(t *testing.T) {
	s, orch := startedSession(t, &scriptedCompleter{replies: []string{"Q1", "Thank You"}})
	for _, msg := range []string{"hi", "answer"} {
		_, err := s.Send(context.Background(), msg)
		require.NoError(t, err)
	}

	report, err := s.GenerateAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 75, report.FitScore)
	assert.Len(t, orch.analysisTurns, 4)
	assert.Equal(t, StateAnalysisUnlocked, s.State())

	snap := s.Snapshot()
	require.NotNil(t, snap.Report)
	assert.Equal(t, "fit", snap.Report.Summary)
}

func TestGenerateAnalysisFailureCanBeRetried(t *testing.T) {
	s, orch := startedSession(t, &scriptedCompleter{replies: []string{"Thank You"}})
	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)

	orch.analysisErr = stderrors.New("upstream 500")
	_, err = s.GenerateAnalysis(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
	assert.Equal(t, StateAnalysisUnlocked, s.State())
	assert.Nil(t, s.Snapshot().Report)
	assert.False(t, s.IsBusy(), "a failed action releases its guard")

	orch.analysisErr = nil
	report, err := s.GenerateAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 75, report.FitScore)
	assert.Equal(t, int32(2), orch.analysisCalls.Load())
	assert.Equal(t, StateAnalysisUnlocked, s.State())
}

func TestAttachDocumentsAfterStartIsRejected(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{})
	pair := ingestPair(t)
	assert.ErrorIs(t, s.AttachDocuments(pair), ErrAlreadyStarted)
	pair.Cleanup()
}

func TestAttachDocumentsReplacesPreviousPair(t *testing.T) {
	s := newTestSession(t, &scriptedOrchestrator{}, &scriptedCompleter{})
	first := ingestPair(t)
	require.NoError(t, s.AttachDocuments(first))
	require.NoError(t, s.AttachDocuments(ingestPair(t)))

	_, err := os.Stat(first.Resume.Path)
	assert.True(t, os.IsNotExist(err), "replaced documents are removed")
}

func TestCloseCleansUpDocuments(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{})
	snap := s.Snapshot()
	require.True(t, snap.HasDocuments())

	s.Close()
	s.Close()

	assertDocumentsRemoved(t, snap)

	_, err := s.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func assertDocumentsRemoved(t *testing.T, snap Snapshot) {
	t.Helper()
	for _, path := range []string{snap.JobDescription.Path, snap.Resume.Path, filepath.Dir(snap.Resume.Path)} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "%s should be removed", path)
	}
}

func TestCloseCleansUpAfterFailedSend(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{""}, errs: []error{stderrors.New("connection reset")}}
	s, _ := startedSession(t, completer)
	snap := s.Snapshot()
	require.True(t, snap.HasDocuments())

	_, err := s.Send(context.Background(), "hello")
	require.Error(t, err)

	s.Close()
	assertDocumentsRemoved(t, snap)
}

func TestCloseCleansUpAfterFailedStart(t *testing.T) {
	orch := &scriptedOrchestrator{questionsErr: stderrors.New("quota")}
	s := newTestSession(t, orch, &scriptedCompleter{})
	require.NoError(t, s.AttachDocuments(ingestPair(t)))
	snap := s.Snapshot()

	_, err := s.Start(context.Background())
	require.Error(t, err)

	s.Close()
	assertDocumentsRemoved(t, snap)
}

func TestCloseWithoutDocuments(t *testing.T) {
	s := newTestSession(t, &scriptedOrchestrator{}, &scriptedCompleter{})
	assert.NotPanics(t, s.Close)
}

func TestRecorderReceivesEvents(t *testing.T) {
	rec := newCountingRecorder()
	orch := &scriptedOrchestrator{questions: types.QuestionSet{Questions: []string{"Q1"}}}
	s := New("rec", Dependencies{
		Orchestrator: orch,
		Processor:    conversation.NewProcessor(&scriptedCompleter{replies: []string{"Thank You"}}, testLogger),
		Recorder:     rec,
		Logger:       testLogger,
	}, testTimeouts())
	require.NoError(t, s.AttachDocuments(ingestPair(t)))

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "hi")
	require.NoError(t, err)
	_, err = s.GenerateAnalysis(context.Background())
	require.NoError(t, err)
	s.Close()

	assert.Equal(t, map[string]int{
		config.OperationQuestions: 1,
		config.OperationChat:      1,
		config.OperationAnalysis:  1,
	}, rec.ops)
	assert.Equal(t, 1, rec.events[EventStarted])
	assert.Equal(t, 1, rec.events[EventTurn])
	assert.Equal(t, 1, rec.events[EventAnalysisUnlocked])
	assert.Equal(t, 1, rec.events[EventAnalysis])
	assert.Equal(t, 1, rec.events[EventEnded])
}

func TestIngestDocuments(t *testing.T) {
	s := newTestSession(t, &scriptedOrchestrator{}, &scriptedCompleter{})
	ing := ingest.NewIngestor(t.TempDir(), 0, testLogger)

	err := s.IngestDocuments(ing,
		ingest.Upload{Name: "jd.txt", Reader: strings.NewReader("role")},
		ingest.Upload{Name: "cv.pdf", Reader: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.True(t, s.Snapshot().HasDocuments())

	err = s.IngestDocuments(ing,
		ingest.Upload{Name: "jd.md", Reader: strings.NewReader("role")},
		ingest.Upload{Name: "cv.pdf", Reader: strings.NewReader("%PDF")})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, "jd.txt", s.Snapshot().JobDescription.Name, "failed upload keeps the previous pair")
}

func TestSnapshotTranscript(t *testing.T) {
	s, _ := startedSession(t, &scriptedCompleter{replies: []string{"Q1"}})
	_, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)

	transcript := s.Snapshot().Transcript()
	assert.Equal(t, "test", transcript.SessionID)
	assert.Equal(t, string(StateInProgress), transcript.State)
	assert.Equal(t, []types.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "Q1"},
	}, transcript.Messages)
	assert.Nil(t, transcript.Report)
}
