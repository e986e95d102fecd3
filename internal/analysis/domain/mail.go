package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// MailEmbedding is one ingested mail message with its embedding vector.
// Rows are insert-only from the ingestion side; the topic classifier
// later fills TopicID, and mail actions flip the soft-delete flags.
type MailEmbedding struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	UserID     string          `json:"user_id" gorm:"index;not null"`
	GmailMsgID string          `json:"gmail_msg_id" gorm:"uniqueIndex;not null"`
	ThreadID   string          `json:"thread_id,omitempty"`
	Sender     string          `json:"sender"`
	Subject    string          `json:"subject"`
	Snippet    string          `json:"snippet"`
	Labels     []string        `json:"labels" gorm:"serializer:json"`
	SizeBytes  int64           `json:"size_bytes"`
	IsRead     bool            `json:"is_read"`
	IsStarred  bool            `json:"is_starred"`
	ReceivedAt time.Time       `json:"received_at"`
	Vector     pgvector.Vector `json:"-" gorm:"type:vector(384)"`
	TopicID    *int            `json:"topic_id,omitempty"`
	IsDeleted  bool            `json:"is_deleted" gorm:"default:false"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// MajorTopic is a coarse mail category. Read-only from this service's
// perspective; centroids are maintained externally.
type MajorTopic struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MajorTopicEmbedding holds the centroid vector for a topic
type MajorTopicEmbedding struct {
	TopicID int             `json:"topic_id" gorm:"primaryKey"`
	Vector  pgvector.Vector `json:"-" gorm:"type:vector(384)"`
}

// MailFilter narrows sender-detail queries
type MailFilter struct {
	Sender          string
	StartDate       *time.Time
	EndDate         *time.Time
	IsRead          *bool
	OlderThanMonths *int
	MinSizeBytes    *int64
}

// SenderStat is an aggregate row for the top-senders view
type SenderStat struct {
	Sender string `json:"sender"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// TopicStat is an aggregate row for the keyword view: how many of a
// user's records the classifier put in each topic
type TopicStat struct {
	TopicID     int    `json:"topic_id"`
	Description string `json:"description"`
	Count       int64  `json:"count"`
}

// MailActionType enumerates the bulk actions a user can apply to
// messages. Dispatch happens over this enum, never over raw strings.
type MailActionType string

const (
	MailActionTrash   MailActionType = "delete"
	MailActionArchive MailActionType = "archive"
	MailActionSpam    MailActionType = "spam"
)

// ValidMailAction reports whether the action is a known enum value
func ValidMailAction(a MailActionType) bool {
	switch a {
	case MailActionTrash, MailActionArchive, MailActionSpam:
		return true
	}
	return false
}
