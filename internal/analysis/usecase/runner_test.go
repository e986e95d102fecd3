package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"mailgreen-backend/internal/analysis/domain"
	authdomain "mailgreen-backend/internal/auth/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskRepo struct {
	mu           sync.Mutex
	tasks        map[string]*domain.AnalysisTask
	progress     []int
	doneCursor   string
	failedMsg    string
	failedCursor *string
	markedDone   bool
	markedFailed bool
	latestCursor string
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.AnalysisTask)}
}

func (r *fakeTaskRepo) Create(task *domain.AnalysisTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) FindByID(id string) (*domain.AnalysisTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id], nil
}

func (r *fakeTaskRepo) FindLatestByUser(userID string) (*domain.AnalysisTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.AnalysisTask
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if latest == nil || t.StartedAt.After(latest.StartedAt) {
			latest = t
		}
	}
	return latest, nil
}

func (r *fakeTaskRepo) FindLatestCursor(userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestCursor, nil
}

func (r *fakeTaskRepo) UpdateProgress(id string, pct int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, pct)
	if t, ok := r.tasks[id]; ok {
		t.Status = domain.TaskStatusRunning
		t.ProgressPct = pct
	}
	return nil
}

func (r *fakeTaskRepo) MarkDone(id string, cursor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedDone = true
	r.doneCursor = cursor
	if t, ok := r.tasks[id]; ok {
		t.Status = domain.TaskStatusDone
		t.ProgressPct = 100
		t.HistoryID = &cursor
	}
	return nil
}

func (r *fakeTaskRepo) MarkFailed(id string, errMsg string, entryCursor *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedFailed = true
	r.failedMsg = errMsg
	r.failedCursor = entryCursor
	if t, ok := r.tasks[id]; ok {
		t.Status = domain.TaskStatusFailed
		t.ErrorMsg = &errMsg
		t.HistoryID = entryCursor
	}
	return nil
}

type fakeCredsRepo struct {
	creds *authdomain.UserCredentials
	saved []*authdomain.UserCredentials
}

func (r *fakeCredsRepo) Create(user *authdomain.User) error                    { return nil }
func (r *fakeCredsRepo) FindByEmail(email string) (*authdomain.User, error)    { return nil, nil }
func (r *fakeCredsRepo) FindByID(id string) (*authdomain.User, error)          { return nil, nil }
func (r *fakeCredsRepo) Update(user *authdomain.User) error                    { return nil }
func (r *fakeCredsRepo) SaveRefreshToken(t *authdomain.RefreshToken) error     { return nil }
func (r *fakeCredsRepo) FindRefreshToken(t string) (*authdomain.RefreshToken, error) {
	return nil, nil
}
func (r *fakeCredsRepo) DeleteRefreshToken(t string) error { return nil }

func (r *fakeCredsRepo) SaveCredentials(creds *authdomain.UserCredentials) error {
	r.saved = append(r.saved, creds)
	return nil
}

func (r *fakeCredsRepo) FindCredentials(userID string) (*authdomain.UserCredentials, error) {
	return r.creds, nil
}

type fakeProvider struct {
	client domain.MailClient
}

func (p *fakeProvider) ClientForUser(ctx context.Context, accessToken, refreshToken string, onTokenRefresh domain.TokenUpdateFunc) (domain.MailClient, error) {
	return p.client, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.texts = append(e.texts, texts...)
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		// Empty texts get a zero vector, like the real embedder.
		if text == "" {
			vectors[i] = []float32{0, 0}
		} else {
			vectors[i] = []float32{0.6, 0.8}
		}
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimension() int { return 2 }

func storedCreds() *authdomain.UserCredentials {
	return &authdomain.UserCredentials{
		UserID:       "user-1",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func pendingTask(id string, historyID *string) *domain.AnalysisTask {
	return &domain.AnalysisTask{
		ID:        id,
		UserID:    "user-1",
		TaskType:  domain.TaskTypeEmailAnalysis,
		Status:    domain.TaskStatusPending,
		StartedAt: time.Now().UTC(),
		HistoryID: historyID,
	}
}

func newTestRunner(taskRepo *fakeTaskRepo, mailRepo *fakeMailRepo, client domain.MailClient) *Runner {
	return NewRunner(
		taskRepo,
		mailRepo,
		&fakeCredsRepo{creds: storedCreds()},
		&fakeProvider{client: client},
		&fakeEmbedder{},
		nil,
		50, 5, 3,
	)
}

func TestRunnerExecuteHappyPath(t *testing.T) {
	client := newFakeMailClient(makeIDs(7)...)
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	runner := newTestRunner(taskRepo, mailRepo, client)
	err := runner.Execute(context.Background(), "user-1", "task-1", "")

	require.NoError(t, err)
	assert.True(t, taskRepo.markedDone)
	assert.Equal(t, "9999", taskRepo.doneCursor)
	assert.Equal(t, 1, client.listAllCalls, "no stored cursor means a full listing")

	require.Len(t, mailRepo.inserted, 7)
	for _, rec := range mailRepo.inserted {
		assert.Equal(t, "user-1", rec.UserID)
		assert.NotEmpty(t, rec.GmailMsgID)
		assert.NotEmpty(t, rec.Vector.Slice())
	}

	require.NotEmpty(t, taskRepo.progress)
	for i := 1; i < len(taskRepo.progress); i++ {
		assert.GreaterOrEqual(t, taskRepo.progress[i], taskRepo.progress[i-1], "progress must be monotonic")
	}
	assert.Equal(t, 100, taskRepo.progress[len(taskRepo.progress)-1])
}

func TestRunnerExecuteDeltaUsesStoredCursor(t *testing.T) {
	client := newFakeMailClient(makeIDs(10)...)
	client.addedIDs = []string{"msg-008", "msg-009"}
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	cursor := "4711"
	require.NoError(t, taskRepo.Create(pendingTask("task-1", &cursor)))

	runner := newTestRunner(taskRepo, mailRepo, client)
	err := runner.Execute(context.Background(), "user-1", "task-1", "")

	require.NoError(t, err)
	assert.Equal(t, 0, client.listAllCalls)
	assert.Equal(t, "4711", client.lastStartCursor)
	assert.Len(t, mailRepo.inserted, 2)
}

func TestRunnerExecuteCheckpointOverride(t *testing.T) {
	client := newFakeMailClient(makeIDs(10)...)
	client.addedIDs = []string{"msg-009"}
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	cursor := "4711"
	require.NoError(t, taskRepo.Create(pendingTask("task-1", &cursor)))

	runner := newTestRunner(taskRepo, mailRepo, client)
	err := runner.Execute(context.Background(), "user-1", "task-1", "5000")

	require.NoError(t, err)
	assert.Equal(t, "5000", client.lastStartCursor, "explicit checkpoint wins over the stored one")
}

func TestRunnerFailureRestoresEntryCursor(t *testing.T) {
	client := newFakeMailClient(makeIDs(3)...)
	client.cursorErr = errors.New("profile unavailable")
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	cursor := "4711"
	require.NoError(t, taskRepo.Create(pendingTask("task-1", &cursor)))

	runner := newTestRunner(taskRepo, mailRepo, client)
	err := runner.Execute(context.Background(), "user-1", "task-1", "5000")

	require.Error(t, err)
	assert.True(t, taskRepo.markedFailed)
	assert.False(t, taskRepo.markedDone)
	require.NotNil(t, taskRepo.failedCursor)
	assert.Equal(t, "4711", *taskRepo.failedCursor, "a failed run keeps the cursor it entered with")
}

func TestRunnerMissingTaskIsFatal(t *testing.T) {
	client := newFakeMailClient()
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()

	runner := newTestRunner(taskRepo, mailRepo, client)
	err := runner.Execute(context.Background(), "user-1", "no-such-task", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.False(t, taskRepo.markedFailed, "nothing to mark when the task row is gone")
}

func TestRunnerNoCredentialsFailsTask(t *testing.T) {
	client := newFakeMailClient(makeIDs(2)...)
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	runner := NewRunner(
		taskRepo,
		mailRepo,
		&fakeCredsRepo{},
		&fakeProvider{client: client},
		&fakeEmbedder{},
		nil,
		50, 5, 3,
	)
	err := runner.Execute(context.Background(), "user-1", "task-1", "")

	require.Error(t, err)
	assert.True(t, taskRepo.markedFailed)
	assert.Empty(t, mailRepo.inserted)
}

func TestRunnerBlankMailEmbedsEmptyText(t *testing.T) {
	client := newFakeMailClient("msg-blank")
	client.metadata["msg-blank"].Subject = ""
	client.metadata["msg-blank"].Snippet = ""
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	embedder := &fakeEmbedder{}
	runner := NewRunner(
		taskRepo,
		mailRepo,
		&fakeCredsRepo{creds: storedCreds()},
		&fakeProvider{client: client},
		embedder,
		nil,
		50, 5, 3,
	)
	require.NoError(t, runner.Execute(context.Background(), "user-1", "task-1", ""))

	require.Equal(t, []string{""}, embedder.texts, "blank subject and snippet must not leave a stray space")
	require.Len(t, mailRepo.inserted, 1)
	assert.Equal(t, []float32{0, 0}, mailRepo.inserted[0].Vector.Slice())
}

func TestRunnerTruncatesEmbedTextOnRuneBoundary(t *testing.T) {
	client := newFakeMailClient("msg-long")
	// 1000 three-byte runes: the 2000-byte cap lands mid-rune and the
	// cut has to back up to the previous boundary.
	client.metadata["msg-long"].Subject = strings.Repeat("数", 1000)
	client.metadata["msg-long"].Snippet = ""
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	embedder := &fakeEmbedder{}
	runner := NewRunner(
		taskRepo,
		mailRepo,
		&fakeCredsRepo{creds: storedCreds()},
		&fakeProvider{client: client},
		embedder,
		nil,
		50, 5, 3,
	)
	require.NoError(t, runner.Execute(context.Background(), "user-1", "task-1", ""))

	require.Len(t, embedder.texts, 1)
	text := embedder.texts[0]
	assert.Equal(t, 1998, len(text))
	assert.True(t, utf8.ValidString(text))
}

func TestRunnerClassifierFailureDoesNotMaskSuccess(t *testing.T) {
	client := newFakeMailClient(makeIDs(2)...)
	taskRepo := newFakeTaskRepo()
	mailRepo := newFakeMailRepo()
	require.NoError(t, taskRepo.Create(pendingTask("task-1", nil)))

	classifier := NewTopicClassifier(mailRepo, &fakeTopicRepo{listErr: errors.New("centroids unavailable")})
	runner := NewRunner(
		taskRepo,
		mailRepo,
		&fakeCredsRepo{creds: storedCreds()},
		&fakeProvider{client: client},
		&fakeEmbedder{},
		classifier,
		50, 5, 3,
	)
	err := runner.Execute(context.Background(), "user-1", "task-1", "")

	require.NoError(t, err, "a failed classification pass must not fail the run")
	assert.True(t, taskRepo.markedDone)
}
