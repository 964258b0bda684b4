// Package session implements the interview session state machine and the
// registry of live sessions.
package session

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"time"

	"interviewer/internal/ai"
	"interviewer/internal/config"
	"interviewer/internal/conversation"
	"interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/ingest"
	"interviewer/internal/types"
)

// State is the position of a session in the interview lifecycle.
// Transitions only ever move forward.
type State string

const (
	StateNotStarted       State = "not_started"
	StateInProgress       State = "interview_in_progress"
	StateAnalysisUnlocked State = "analysis_unlocked"
)

// Action names a user-triggered operation guarded against re-entry
type Action string

const (
	ActionDocuments Action = "documents"
	ActionStart     Action = "start"
	ActionSend      Action = "send"
	ActionAnalysis  Action = "analysis"
)

// Interview events passed to the Recorder
const (
	EventCreated          = "session_created"
	EventStarted          = "interview_started"
	EventTurn             = "turn"
	EventAnalysisUnlocked = "analysis_unlocked"
	EventAnalysis         = "analysis_generated"
	EventEnded            = "session_ended"
)

// Input errors. They never change session state.
var (
	ErrDocumentsMissing = errors.NewValidationError(errors.ErrCodeDocumentsMissing,
		"upload both the job description and the resume first", nil)
	ErrEmptyMessage = errors.NewValidationError(errors.ErrCodeEmptyMessage,
		"message must not be empty", nil)
	ErrNotStarted = errors.NewValidationError(errors.ErrCodeNotStarted,
		"the interview has not been started", nil)
	ErrAlreadyStarted = errors.NewValidationError(errors.ErrCodeAlreadyStarted,
		"documents cannot be replaced once the interview has started", nil)
	ErrAnalysisLocked = errors.NewValidationError(errors.ErrCodeAnalysisLocked,
		"analysis is available once the interviewer has finished the questions", nil)
	ErrActionInProgress = errors.NewValidationError(errors.ErrCodeActionInProgress,
		"the same action is already running", nil)
	ErrSessionClosed = errors.NewValidationError(errors.ErrCodeSessionClosed,
		"the session has ended", nil)
)

// Recorder receives interview metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error
	RecordInterviewEvent(ctx context.Context, event string, success bool)
}

type noopRecorder struct{}

func (noopRecorder) TrackAIOperation(ctx context.Context, _ string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	_, err := fn(ctx)
	return err
}

func (noopRecorder) RecordInterviewEvent(context.Context, string, bool) {}

// Dependencies are the collaborators shared by every session
type Dependencies struct {
	Orchestrator ai.Orchestrator
	Processor    *conversation.Processor
	Recorder     Recorder
	Logger       *errors.Logger
}

// Session is the state of one candidate interview. Each action runs to
// completion before the same action is accepted again; the external calls
// run without holding the session lock.
type Session struct {
	id       string
	deps     Dependencies
	timeouts config.SessionConfig
	logger   *errors.Logger

	mu        sync.Mutex
	state     State
	questions types.QuestionSet
	history   *history.Store
	documents *ingest.Pair
	report    *types.AnalysisReport
	busy      map[Action]bool
	closed    bool
	createdAt time.Time
	updatedAt time.Time
	startedAt time.Time
}

// New creates a session in the NotStarted state
func New(id string, deps Dependencies, timeouts config.SessionConfig) *Session {
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	now := time.Now()
	return &Session{
		id:        id,
		deps:      deps,
		timeouts:  timeouts,
		logger:    deps.Logger.With("session_id", id),
		state:     StateNotStarted,
		history:   history.NewStore(),
		busy:      make(map[Action]bool),
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns the time of the last completed action
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// IsBusy reports whether any action is running
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.busy) > 0
}

func (s *Session) begin(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.busy[action] {
		return ErrActionInProgress
	}
	s.busy[action] = true
	return nil
}

func (s *Session) end(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, action)
	s.updatedAt = time.Now()
}

// AttachDocuments records the ingested document pair. A pair attached
// earlier is replaced and cleaned up. On error the caller keeps ownership
// of pair.
func (s *Session) AttachDocuments(pair *ingest.Pair) error {
	return s.attach(pair, false)
}

// IngestDocuments stores both uploads through ing and attaches them
func (s *Session) IngestDocuments(ing *ingest.Ingestor, jobDescription, resume ingest.Upload) error {
	if err := s.begin(ActionDocuments); err != nil {
		return err
	}
	defer s.end(ActionDocuments)

	if s.State() != StateNotStarted {
		return ErrAlreadyStarted
	}
	pair, err := ing.Ingest(s.id, jobDescription, resume)
	if err != nil {
		return err
	}
	if err := s.attach(pair, true); err != nil {
		pair.Cleanup()
		return err
	}
	return nil
}

func (s *Session) attach(pair *ingest.Pair, uploading bool) error {
	if pair == nil {
		return ErrDocumentsMissing
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.busy[ActionStart] || (!uploading && s.busy[ActionDocuments]):
		s.mu.Unlock()
		return ErrActionInProgress
	case s.state != StateNotStarted:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	previous := s.documents
	s.documents = pair
	s.updatedAt = time.Now()
	s.mu.Unlock()

	previous.Cleanup()
	s.logger.Info("Documents attached",
		"job_description", pair.JobDescription.Name,
		"resume", pair.Resume.Name)
	return nil
}

// Start generates the question set and moves the session to
// InterviewInProgress. Once started, further calls return the existing
// question set without generating again.
func (s *Session) Start(ctx context.Context) (types.QuestionSet, error) {
	if err := s.begin(ActionStart); err != nil {
		return types.QuestionSet{}, err
	}
	defer s.end(ActionStart)

	s.mu.Lock()
	if s.state != StateNotStarted {
		questions := s.questions
		s.mu.Unlock()
		return questions, nil
	}
	pair := s.documents
	s.mu.Unlock()

	if pair == nil {
		return types.QuestionSet{}, ErrDocumentsMissing
	}
	docs, err := pair.Documents()
	if err != nil {
		return types.QuestionSet{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StartTimeout)
	defer cancel()

	s.logger.Info("Generating interview questions")
	var questions types.QuestionSet
	err = s.deps.Recorder.TrackAIOperation(ctx, config.OperationQuestions, func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var genErr error
		questions, usage, genErr = s.deps.Orchestrator.GenerateQuestions(ctx, docs)
		return usage, genErr
	})
	if err != nil {
		s.deps.Recorder.RecordInterviewEvent(ctx, EventStarted, false)
		return types.QuestionSet{}, externalError(config.OperationQuestions, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.QuestionSet{}, ErrSessionClosed
	}
	s.questions = questions
	s.state = StateInProgress
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.deps.Recorder.RecordInterviewEvent(ctx, EventStarted, true)
	s.logger.Info("Interview started", "questions", questions.Len())
	return questions, nil
}

// TurnResult is the outcome of a successful Send
type TurnResult struct {
	Reply            string `json:"reply"`
	State            State  `json:"state"`
	AnalysisUnlocked bool   `json:"analysisUnlocked"`
}

// Send asks the interviewer for the next reply. History and state only
// change when the reply was obtained.
func (s *Session) Send(ctx context.Context, message string) (TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if err := s.begin(ActionSend); err != nil {
		return TurnResult{}, err
	}
	defer s.end(ActionSend)

	s.mu.Lock()
	if s.state == StateNotStarted {
		s.mu.Unlock()
		return TurnResult{}, ErrNotStarted
	}
	questions := s.questions
	turns := s.history.Show()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.SendTimeout)
	defer cancel()

	var reply string
	err := s.deps.Recorder.TrackAIOperation(ctx, config.OperationChat, func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var replyErr error
		reply, usage, replyErr = s.deps.Processor.Reply(ctx, questions, turns, message)
		return usage, replyErr
	})
	if err != nil {
		s.deps.Recorder.RecordInterviewEvent(ctx, EventTurn, false)
		return TurnResult{}, externalError(config.OperationChat, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return TurnResult{}, ErrSessionClosed
	}
	s.history.Add(message, reply)
	unlocked := false
	if s.state == StateInProgress && conversation.IsClosing(reply) {
		s.state = StateAnalysisUnlocked
		unlocked = true
	}
	result := TurnResult{Reply: reply, State: s.state, AnalysisUnlocked: s.state == StateAnalysisUnlocked}
	s.mu.Unlock()

	s.deps.Recorder.RecordInterviewEvent(ctx, EventTurn, true)
	if unlocked {
		s.deps.Recorder.RecordInterviewEvent(ctx, EventAnalysisUnlocked, true)
		s.logger.Info("Interview finished, analysis unlocked", "turns", s.history.Len())
	}
	return result, nil
}

// GenerateAnalysis produces the suitability report. It is only available
// once the analysis is unlocked and does not change the state.
func (s *Session) GenerateAnalysis(ctx context.Context) (types.AnalysisReport, error) {
	if err := s.begin(ActionAnalysis); err != nil {
		return types.AnalysisReport{}, err
	}
	defer s.end(ActionAnalysis)

	s.mu.Lock()
	if s.state != StateAnalysisUnlocked {
		s.mu.Unlock()
		return types.AnalysisReport{}, ErrAnalysisLocked
	}
	pair := s.documents
	turns := s.history.Show()
	s.mu.Unlock()

	if pair == nil {
		return types.AnalysisReport{}, ErrDocumentsMissing
	}
	docs, err := pair.Documents()
	if err != nil {
		return types.AnalysisReport{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.AnalysisTimeout)
	defer cancel()

	s.logger.Info("Generating analysis", "turns", len(turns))
	var report types.AnalysisReport
	err = s.deps.Recorder.TrackAIOperation(ctx, config.OperationAnalysis, func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var genErr error
		report, usage, genErr = s.deps.Orchestrator.GenerateAnalysis(ctx, docs, turns)
		return usage, genErr
	})
	if err != nil {
		s.deps.Recorder.RecordInterviewEvent(ctx, EventAnalysis, false)
		return types.AnalysisReport{}, externalError(config.OperationAnalysis, err)
	}

	s.mu.Lock()
	s.report = &report
	s.mu.Unlock()

	s.deps.Recorder.RecordInterviewEvent(ctx, EventAnalysis, true)
	return report, nil
}

// History returns a copy of the conversation
func (s *Session) History() []history.Turn {
	return s.history.Show()
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID               string                `json:"id"`
	State            State                 `json:"state"`
	Started          bool                  `json:"started"`
	AnalysisUnlocked bool                  `json:"analysisUnlocked"`
	JobDescription   *ingest.Handle        `json:"jobDescription,omitempty"`
	Resume           *ingest.Handle        `json:"resume,omitempty"`
	Questions        types.QuestionSet     `json:"questions"`
	History          []history.Turn        `json:"history"`
	Report           *types.AnalysisReport `json:"report,omitempty"`
	Busy             []Action              `json:"busy"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	StartedAt        *time.Time            `json:"startedAt,omitempty"`
}

// HasDocuments reports whether both documents are attached
func (s Snapshot) HasDocuments() bool {
	return s.JobDescription != nil && s.Resume != nil
}

// Transcript converts the snapshot for output formatting
func (s Snapshot) Transcript() types.Transcript {
	t := types.Transcript{
		SessionID: s.ID,
		State:     string(s.State),
		Questions: s.Questions,
		Messages:  make([]types.Message, 0, len(s.History)),
		Report:    s.Report,
	}
	for _, turn := range s.History {
		t.Messages = append(t.Messages, types.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return t
}

// Snapshot returns the current view of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		State:            s.state,
		Started:          s.state != StateNotStarted,
		AnalysisUnlocked: s.state == StateAnalysisUnlocked,
		Questions:        types.QuestionSet{Questions: slices.Clone(s.questions.Questions)},
		History:          s.history.Show(),
		Busy:             make([]Action, 0, len(s.busy)),
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
	if s.documents != nil {
		jd, resume := s.documents.JobDescription, s.documents.Resume
		snap.JobDescription = &jd
		snap.Resume = &resume
	}
	if s.report != nil {
		report := *s.report
		snap.Report = &report
	}
	if !s.startedAt.IsZero() {
		startedAt := s.startedAt
		snap.StartedAt = &startedAt
	}
	for action := range s.busy {
		snap.Busy = append(snap.Busy, action)
	}
	slices.Sort(snap.Busy)
	return snap
}

// Close ends the session and removes its transient documents. It is safe
// to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pair := s.documents
	s.mu.Unlock()

	pair.Cleanup()
	s.history.Clear()
	s.deps.Recorder.RecordInterviewEvent(context.Background(), EventEnded, true)
	s.logger.Info("Session closed")
}

// externalError maps provider failures to recoverable AI errors
func externalError(operation string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewAIError(errors.ErrCodeAITimeout, operation+" timed out", err)
	}
	return errors.NewAIError(errors.ErrCodeAIServiceFailed, operation+" failed", err)
}
