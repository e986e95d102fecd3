package usecase

import (
	"context"

	"mailgreen-backend/internal/analysis/domain"
)

// StartResult reports the outcome of an analysis trigger
type StartResult struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Started bool   `json:"started"`
}

// MailDetailResult is the expanded view for a group of messages, by
// sender or by topic. The returned ids are also remembered per user so
// a follow-up action can target "the messages I just looked at".
type MailDetailResult struct {
	Mails      []*domain.MailEmbedding `json:"mails"`
	Total      int                     `json:"total"`
	TotalBytes int64                   `json:"total_bytes"`
}

// ActionResult summarizes a bulk mail action
type ActionResult struct {
	Action    domain.MailActionType `json:"action"`
	Requested int                   `json:"requested"`
	Succeeded int                   `json:"succeeded"`
	Failed    []string              `json:"failed,omitempty"`
	DryRun    bool                  `json:"dry_run,omitempty"`
}

// AnalysisUsecase is the mail analysis surface exposed to delivery
type AnalysisUsecase interface {
	// StartAnalysis queues an ingestion run for the user. When a run is
	// already pending or running the existing task is returned instead.
	StartAnalysis(userID string) (*StartResult, error)
	// GetProgress reports the state of the user's latest run
	GetProgress(userID string) (*domain.ProgressView, error)
	// TopSenders returns the user's most frequent senders
	TopSenders(userID string, limit int) ([]*domain.SenderStat, error)
	// SenderDetails lists a sender's messages matching the filter
	SenderDetails(userID string, filter domain.MailFilter) (*MailDetailResult, error)
	// TopKeywords returns the user's largest classified topics
	TopKeywords(userID string, limit int) ([]*domain.TopicStat, error)
	// KeywordDetails lists a topic's messages matching the filter.
	// Returns ErrTopicNotFound when the topic id is unknown.
	KeywordDetails(userID string, topicID int, filter domain.MailFilter) (*MailDetailResult, error)
	// ListTopics returns the topic catalog
	ListTopics() ([]*domain.MajorTopic, error)
	// ApplyMailAction applies a bulk action to the given message ids,
	// or to the ids remembered from the last SenderDetails call when
	// useLast is set
	ApplyMailAction(ctx context.Context, userID string, action domain.MailActionType, ids []string, useLast, dryRun bool) (*ActionResult, error)
}
