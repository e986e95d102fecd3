package usecase

import (
	"context"
	"testing"
	"time"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usecaseFixture struct {
	taskRepo  *fakeTaskRepo
	mailRepo  *fakeMailRepo
	topicRepo *fakeTopicRepo
	client    *fakeMailClient
	sessions  *session.Store
	uc        AnalysisUsecase
}

func newUsecaseFixture(t *testing.T) *usecaseFixture {
	t.Helper()

	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	client := newFakeMailClient(makeIDs(3)...)
	sessions := session.NewStore()
	t.Cleanup(sessions.Close)

	runner := newTestRunner(taskRepo, mailRepo, client)
	worker := NewAnalysisWorkerService(runner, 1)
	topicRepo := &fakeTopicRepo{}

	uc := NewAnalysisUsecase(taskRepo, mailRepo, topicRepo, runner, worker, sessions)
	return &usecaseFixture{
		taskRepo:  taskRepo,
		mailRepo:  mailRepo,
		topicRepo: topicRepo,
		client:    client,
		sessions:  sessions,
		uc:        uc,
	}
}

func TestStartAnalysisQueuesNewTask(t *testing.T) {
	f := newUsecaseFixture(t)

	result, err := f.uc.StartAnalysis("user-1")

	require.NoError(t, err)
	assert.True(t, result.Started)
	assert.Equal(t, string(domain.TaskStatusPending), result.Status)

	task, err := f.taskRepo.FindByID(result.TaskID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Nil(t, task.HistoryID, "first run starts with no cursor")
}

func TestStartAnalysisSeedsStoredCursor(t *testing.T) {
	f := newUsecaseFixture(t)
	f.taskRepo.latestCursor = "4711"

	result, err := f.uc.StartAnalysis("user-1")

	require.NoError(t, err)
	task, err := f.taskRepo.FindByID(result.TaskID)
	require.NoError(t, err)
	require.NotNil(t, task.HistoryID)
	assert.Equal(t, "4711", *task.HistoryID)
}

func TestStartAnalysisRejectsConcurrentRun(t *testing.T) {
	f := newUsecaseFixture(t)

	first, err := f.uc.StartAnalysis("user-1")
	require.NoError(t, err)

	second, err := f.uc.StartAnalysis("user-1")
	require.NoError(t, err)
	assert.False(t, second.Started)
	assert.Equal(t, first.TaskID, second.TaskID, "the running task is reported instead of a new one")
}

func TestGetProgressNoRuns(t *testing.T) {
	f := newUsecaseFixture(t)

	view, err := f.uc.GetProgress("user-unknown")

	require.NoError(t, err)
	assert.False(t, view.InProgress)
	assert.Equal(t, 0, view.ProgressPct)
}

func TestGetProgressReportsFailure(t *testing.T) {
	f := newUsecaseFixture(t)
	errMsg := "quota exceeded"
	task := pendingTask("task-1", nil)
	task.Status = domain.TaskStatusFailed
	task.ErrorMsg = &errMsg
	task.ProgressPct = 40
	require.NoError(t, f.taskRepo.Create(task))

	view, err := f.uc.GetProgress("user-1")

	require.NoError(t, err)
	assert.False(t, view.InProgress)
	assert.Equal(t, 40, view.ProgressPct)
	assert.Equal(t, string(domain.TaskStatusFailed), view.Status)
	assert.Equal(t, "quota exceeded", view.ErrorMsg)
}

func TestSenderDetailsRemembersSelection(t *testing.T) {
	f := newUsecaseFixture(t)

	// FindBySender is faked to return nothing; the selection memory
	// behavior is observable regardless.
	result, err := f.uc.SenderDetails("user-1", domain.MailFilter{Sender: "sender@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)

	ids, ok := f.sessions.LastIDs("user-1")
	require.True(t, ok)
	assert.Empty(t, ids)
}

func TestApplyMailActionTrash(t *testing.T) {
	f := newUsecaseFixture(t)

	result, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionTrash, []string{"msg-000", "msg-001"}, false, false)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.ElementsMatch(t, []string{"msg-000", "msg-001"}, f.client.trashed)
	assert.ElementsMatch(t, []string{"msg-000", "msg-001"}, f.mailRepo.deleted, "trashed mail is flagged deleted locally")
}

func TestApplyMailActionArchiveKeepsRecords(t *testing.T) {
	f := newUsecaseFixture(t)

	result, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionArchive, []string{"msg-000"}, false, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{"msg-000"}, f.client.archived)
	assert.Empty(t, f.mailRepo.deleted)
}

func TestApplyMailActionDryRun(t *testing.T) {
	f := newUsecaseFixture(t)

	result, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionTrash, []string{"msg-000"}, false, true)

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, f.client.trashed, "a dry run never touches the mailbox")
}

func TestApplyMailActionUseLastSelection(t *testing.T) {
	f := newUsecaseFixture(t)
	f.sessions.SetLastIDs("user-1", []string{"msg-001", "msg-002"})

	result, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionSpam, nil, true, false)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.ElementsMatch(t, []string{"msg-001", "msg-002"}, f.client.spammed)

	_, ok := f.sessions.LastIDs("user-1")
	assert.False(t, ok, "acting on the selection invalidates it")
}

func TestApplyMailActionUseLastWithoutSelection(t *testing.T) {
	f := newUsecaseFixture(t)

	_, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionTrash, nil, true, false)

	require.Error(t, err)
}

func TestApplyMailActionUnknownAction(t *testing.T) {
	f := newUsecaseFixture(t)

	_, err := f.uc.ApplyMailAction(context.Background(), "user-1", domain.MailActionType("shred"), []string{"msg-000"}, false, false)

	require.Error(t, err)
}

func TestWorkerProcessesQueuedJob(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	client := newFakeMailClient(makeIDs(2)...)
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	runner := newTestRunner(taskRepo, mailRepo, client)
	worker := NewAnalysisWorkerService(runner, 1)
	worker.Start()

	require.True(t, worker.QueueJob(AnalysisJob{UserID: "user-1", TaskID: "task-1"}))
	worker.Stop()

	assert.True(t, taskRepo.markedDone)
	assert.Len(t, mailRepo.inserted, 2)
}

func TestQueueJobAfterStopIsRejected(t *testing.T) {
	runner := newTestRunner(newFakeTaskRepo(), newFakeMailRepo(), newFakeMailClient())
	worker := NewAnalysisWorkerService(runner, 1)
	worker.Start()
	worker.Stop()

	assert.False(t, worker.QueueJob(AnalysisJob{UserID: "user-1", TaskID: "task-late"}))
}

func TestTopKeywordsDefaultLimit(t *testing.T) {
	f := newUsecaseFixture(t)
	f.mailRepo.topicStats = []*domain.TopicStat{
		{TopicID: 2, Description: "Finance", Count: 12},
		{TopicID: 1, Description: "Work", Count: 7},
	}

	stats, err := f.uc.TopKeywords("user-1", 0)

	require.NoError(t, err)
	assert.Equal(t, 10, f.mailRepo.statsLimit, "non-positive limit falls back to the default")
	require.Len(t, stats, 2)
	assert.Equal(t, "Finance", stats[0].Description)
}

func TestKeywordDetailsUnknownTopic(t *testing.T) {
	f := newUsecaseFixture(t)

	_, err := f.uc.KeywordDetails("user-1", 99, domain.MailFilter{})

	require.ErrorIs(t, err, ErrTopicNotFound)
}

func TestKeywordDetailsRemembersSelection(t *testing.T) {
	f := newUsecaseFixture(t)
	f.topicRepo.topics = []*domain.MajorTopic{{ID: 3, Name: "Travel"}}
	f.mailRepo.topicMails = map[int][]*domain.MailEmbedding{
		3: {
			{GmailMsgID: "msg-100", SizeBytes: 2048},
			{GmailMsgID: "msg-101", SizeBytes: 1024},
		},
	}

	result, err := f.uc.KeywordDetails("user-1", 3, domain.MailFilter{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, int64(3072), result.TotalBytes)

	ids, ok := f.sessions.LastIDs("user-1")
	require.True(t, ok)
	assert.Equal(t, []string{"msg-100", "msg-101"}, ids)
}

// guard against a regression where queueing blocked the HTTP handler
func TestQueueJobNonBlockingWhenFull(t *testing.T) {
	runner := newTestRunner(newFakeTaskRepo(), newFakeMailRepo(), newFakeMailClient())
	worker := NewAnalysisWorkerService(runner, 1)

	deadline := time.After(2 * time.Second)
	done := make(chan bool, 1)
	go func() {
		ok := true
		for i := 0; i < 200; i++ {
			ok = worker.QueueJob(AnalysisJob{TaskID: "t"})
		}
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok, "queue beyond capacity must report rejection")
	case <-deadline:
		t.Fatal("QueueJob blocked")
	}
}
