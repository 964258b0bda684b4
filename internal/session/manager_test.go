package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"interviewer/internal/conversation"
	"interviewer/internal/errors"
	"interviewer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchiver struct {
	mu    sync.Mutex
	saved []Snapshot
}

func (a *memoryArchiver) Save(_ context.Context, snap Snapshot, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, snap)
	return nil
}

func testManager(t *testing.T, maxSessions int, opts ...ManagerOption) *Manager {
	t.Helper()
	cfg := testTimeouts()
	cfg.MaxSessions = maxSessions
	orch := &scriptedOrchestrator{questions: types.QuestionSet{Questions: []string{"Q1"}}}
	return NewManager(Dependencies{
		Orchestrator: orch,
		Processor:    conversation.NewProcessor(&scriptedCompleter{replies: []string{"Thank You"}}, testLogger),
		Logger:       testLogger,
	}, cfg, opts...)
}

func TestManagerLifecycle(t *testing.T) {
	m := testManager(t, 10)

	s, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.End(context.Background(), s.ID()))
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID())
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSessionNotFound, appErr.Code)

	assert.Error(t, m.End(context.Background(), s.ID()))
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	m := testManager(t, 10)
	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.AttachDocuments(ingestPair(t)))
	_, err = a.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateInProgress, a.State())
	assert.Equal(t, StateNotStarted, b.State())

	stats := m.Stats()
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.ByState[StateInProgress])
	assert.Equal(t, 1, stats.ByState[StateNotStarted])
}

func TestManagerEnforcesLimit(t *testing.T) {
	m := testManager(t, 1)
	_, err := m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSessionLimit, appErr.Code)
}

func TestManagerEndArchivesStartedSessions(t *testing.T) {
	archive := &memoryArchiver{}
	m := testManager(t, 10, WithArchiver(archive))

	started, err := m.Create()
	require.NoError(t, err)
	pair := ingestPair(t)
	require.NoError(t, started.AttachDocuments(pair))
	_, err = started.Start(context.Background())
	require.NoError(t, err)
	_, err = started.Send(context.Background(), "hello")
	require.NoError(t, err)

	idle, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, m.End(context.Background(), started.ID()))
	require.NoError(t, m.End(context.Background(), idle.ID()))

	require.Len(t, archive.saved, 1)
	assert.Equal(t, started.ID(), archive.saved[0].ID)
	assert.Len(t, archive.saved[0].History, 2)
	assert.True(t, archive.saved[0].AnalysisUnlocked)

	_, statErr := os.Stat(pair.JobDescription.Path)
	assert.True(t, os.IsNotExist(statErr), "ending a session removes its documents")
}

func TestManagerReapIdle(t *testing.T) {
	m := testManager(t, 10)
	s, err := m.Create()
	require.NoError(t, err)
	pair := ingestPair(t)
	require.NoError(t, s.AttachDocuments(pair))

	assert.Equal(t, 0, m.ReapIdle(context.Background(), time.Now()))
	assert.Equal(t, 1, m.ReapIdle(context.Background(), time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Len())

	_, statErr := os.Stat(pair.Resume.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManagerShutdownEndsAllSessions(t *testing.T) {
	m := testManager(t, 10)
	m.StartReaper()

	pairs := make([]string, 0, 3)
	for range 3 {
		s, err := m.Create()
		require.NoError(t, err)
		pair := ingestPair(t)
		require.NoError(t, s.AttachDocuments(pair))
		pairs = append(pairs, pair.JobDescription.Path)
	}

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	assert.Equal(t, 0, m.Len())
	for _, path := range pairs {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	}
}
