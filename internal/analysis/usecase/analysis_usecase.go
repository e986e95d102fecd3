package usecase

import (
	"errors"
	"fmt"
	"time"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/internal/analysis/repository"
	"mailgreen-backend/internal/session"

	"github.com/google/uuid"
)

const (
	defaultTopSendersLimit  = 10
	defaultTopKeywordsLimit = 10
)

// ErrTopicNotFound is returned when a keyword lookup names an unknown topic
var ErrTopicNotFound = errors.New("topic not found")

// analysisUsecase implements AnalysisUsecase
type analysisUsecase struct {
	taskRepo  repository.TaskRepository
	mailRepo  repository.MailRepository
	topicRepo repository.TopicRepository
	runner    *Runner
	worker    *AnalysisWorkerService
	sessions  *session.Store
}

// NewAnalysisUsecase creates a new instance of analysisUsecase
func NewAnalysisUsecase(
	taskRepo repository.TaskRepository,
	mailRepo repository.MailRepository,
	topicRepo repository.TopicRepository,
	runner *Runner,
	worker *AnalysisWorkerService,
	sessions *session.Store,
) AnalysisUsecase {
	return &analysisUsecase{
		taskRepo:  taskRepo,
		mailRepo:  mailRepo,
		topicRepo: topicRepo,
		runner:    runner,
		worker:    worker,
		sessions:  sessions,
	}
}

func (u *analysisUsecase) StartAnalysis(userID string) (*StartResult, error) {
	latest, err := u.taskRepo.FindLatestByUser(userID)
	if err != nil {
		return nil, err
	}

	if latest != nil && (latest.Status == domain.TaskStatusPending || latest.Status == domain.TaskStatusRunning) {
		return &StartResult{
			TaskID:  latest.ID,
			Status:  string(latest.Status),
			Started: false,
		}, nil
	}

	cursor, err := u.taskRepo.FindLatestCursor(userID)
	if err != nil {
		return nil, err
	}

	task := &domain.AnalysisTask{
		ID:        uuid.New().String(),
		UserID:    userID,
		TaskType:  domain.TaskTypeEmailAnalysis,
		Status:    domain.TaskStatusPending,
		StartedAt: time.Now().UTC(),
	}
	if cursor != "" {
		task.HistoryID = &cursor
	}

	if err := u.taskRepo.Create(task); err != nil {
		return nil, err
	}

	if !u.worker.QueueJob(AnalysisJob{UserID: userID, TaskID: task.ID}) {
		errMsg := "analysis queue is full"
		if markErr := u.taskRepo.MarkFailed(task.ID, errMsg, task.HistoryID); markErr != nil {
			return nil, markErr
		}
		return nil, fmt.Errorf("%s, try again later", errMsg)
	}

	return &StartResult{
		TaskID:  task.ID,
		Status:  string(domain.TaskStatusPending),
		Started: true,
	}, nil
}

func (u *analysisUsecase) GetProgress(userID string) (*domain.ProgressView, error) {
	latest, err := u.taskRepo.FindLatestByUser(userID)
	if err != nil {
		return nil, err
	}

	if latest == nil {
		return &domain.ProgressView{InProgress: false, ProgressPct: 0}, nil
	}

	view := &domain.ProgressView{
		InProgress:  latest.Status == domain.TaskStatusPending || latest.Status == domain.TaskStatusRunning,
		ProgressPct: latest.ProgressPct,
		Status:      string(latest.Status),
	}
	if latest.ErrorMsg != nil {
		view.ErrorMsg = *latest.ErrorMsg
	}
	return view, nil
}

func (u *analysisUsecase) TopSenders(userID string, limit int) ([]*domain.SenderStat, error) {
	if limit <= 0 {
		limit = defaultTopSendersLimit
	}
	return u.mailRepo.TopSenders(userID, limit)
}

func (u *analysisUsecase) SenderDetails(userID string, filter domain.MailFilter) (*MailDetailResult, error) {
	mails, err := u.mailRepo.FindBySender(userID, filter)
	if err != nil {
		return nil, err
	}
	return u.detailResult(userID, mails), nil
}

func (u *analysisUsecase) TopKeywords(userID string, limit int) ([]*domain.TopicStat, error) {
	if limit <= 0 {
		limit = defaultTopKeywordsLimit
	}
	return u.mailRepo.CountByTopic(userID, limit)
}

func (u *analysisUsecase) KeywordDetails(userID string, topicID int, filter domain.MailFilter) (*MailDetailResult, error) {
	topic, err := u.topicRepo.FindByID(topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}

	mails, err := u.mailRepo.FindByTopic(userID, topicID, filter)
	if err != nil {
		return nil, err
	}
	return u.detailResult(userID, mails), nil
}

// detailResult builds the expanded view and remembers the result set
// so a follow-up action can say "those"
func (u *analysisUsecase) detailResult(userID string, mails []*domain.MailEmbedding) *MailDetailResult {
	ids := make([]string, 0, len(mails))
	var totalBytes int64
	for _, m := range mails {
		ids = append(ids, m.GmailMsgID)
		totalBytes += m.SizeBytes
	}

	u.sessions.SetLastIDs(userID, ids)

	return &MailDetailResult{
		Mails:      mails,
		Total:      len(mails),
		TotalBytes: totalBytes,
	}
}

func (u *analysisUsecase) ListTopics() ([]*domain.MajorTopic, error) {
	return u.topicRepo.ListTopics()
}
