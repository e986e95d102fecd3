package repository

import (
	"mailgreen-backend/internal/analysis/domain"
)

// TaskRepository defines data access for analysis runs
type TaskRepository interface {
	// Create persists a new pending task
	Create(task *domain.AnalysisTask) error
	// FindByID returns the task or nil when it does not exist
	FindByID(id string) (*domain.AnalysisTask, error)
	// FindLatestByUser returns the most recently started task for a user, or nil
	FindLatestByUser(userID string) (*domain.AnalysisTask, error)
	// FindLatestCursor returns the newest stored history cursor for a user
	// ("" when no prior run carried one)
	FindLatestCursor(userID string) (string, error)
	// UpdateProgress persists the progress percentage and moves a pending
	// task to running
	UpdateProgress(id string, pct int) error
	// MarkDone finalizes a successful run with the advanced cursor
	MarkDone(id string, cursor string) error
	// MarkFailed finalizes a failed run, restoring the entry cursor
	MarkFailed(id string, errMsg string, entryCursor *string) error
}

// MailRepository defines data access for ingested mail records
type MailRepository interface {
	// InsertBatch inserts records, silently skipping rows whose
	// gmail_msg_id already exists (insert-or-ignore dedup)
	InsertBatch(records []*domain.MailEmbedding) error
	// FindUnclassified returns non-deleted records with no assigned topic
	FindUnclassified() ([]*domain.MailEmbedding, error)
	// AssignTopic sets the topic id on one record
	AssignTopic(id string, topicID int) error
	// MarkDeleted soft-deletes records by gmail message id
	MarkDeleted(userID string, gmailMsgIDs []string) error
	// TopSenders aggregates record counts per sender
	TopSenders(userID string, limit int) ([]*domain.SenderStat, error)
	// FindBySender returns a user's records matching the filter,
	// newest first
	FindBySender(userID string, filter domain.MailFilter) ([]*domain.MailEmbedding, error)
	// CountByTopic aggregates a user's classified records per topic,
	// largest topic first
	CountByTopic(userID string, limit int) ([]*domain.TopicStat, error)
	// FindByTopic returns a user's records in one topic matching the
	// filter, newest first
	FindByTopic(userID string, topicID int, filter domain.MailFilter) ([]*domain.MailEmbedding, error)
}

// TopicRepository defines read-only access to the topic catalog
type TopicRepository interface {
	// ListTopics returns the topic catalog
	ListTopics() ([]*domain.MajorTopic, error)
	// FindByID returns the topic or nil when it does not exist
	FindByID(id int) (*domain.MajorTopic, error)
	// ListCentroids returns every topic centroid vector
	ListCentroids() ([]*domain.MajorTopicEmbedding, error)
}
