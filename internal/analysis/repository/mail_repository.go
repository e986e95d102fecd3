package repository

import (
	"net/mail"
	"time"

	"mailgreen-backend/internal/analysis/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mailRepository implements MailRepository using GORM
type mailRepository struct {
	db *gorm.DB
}

// NewMailRepository creates a new instance of mailRepository
func NewMailRepository(db *gorm.DB) MailRepository {
	return &mailRepository{
		db: db,
	}
}

// InsertBatch is insert-or-ignore keyed on gmail_msg_id: overlapping
// cursor windows re-fetch messages that are already stored, and those
// rows are skipped instead of failing the whole chunk.
func (r *mailRepository) InsertBatch(records []*domain.MailEmbedding) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gmail_msg_id"}},
		DoNothing: true,
	}).Create(records).Error
}

func (r *mailRepository) FindUnclassified() ([]*domain.MailEmbedding, error) {
	var records []*domain.MailEmbedding
	err := r.db.Where("topic_id IS NULL AND is_deleted = ?", false).
		Find(&records).Error
	return records, err
}

func (r *mailRepository) AssignTopic(id string, topicID int) error {
	return r.db.Model(&domain.MailEmbedding{}).Where("id = ?", id).
		Update("topic_id", topicID).Error
}

func (r *mailRepository) MarkDeleted(userID string, gmailMsgIDs []string) error {
	if len(gmailMsgIDs) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.Model(&domain.MailEmbedding{}).
		Where("user_id = ? AND gmail_msg_id IN ?", userID, gmailMsgIDs).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
		}).Error
}

func (r *mailRepository) TopSenders(userID string, limit int) ([]*domain.SenderStat, error) {
	var stats []*domain.SenderStat
	err := r.db.Model(&domain.MailEmbedding{}).
		Select("sender, COUNT(id) AS count").
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Group("sender").
		Order("count DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	for _, s := range stats {
		s.Name = senderDisplayName(s.Sender)
	}
	return stats, nil
}

func (r *mailRepository) FindBySender(userID string, filter domain.MailFilter) ([]*domain.MailEmbedding, error) {
	query := r.db.Where("user_id = ? AND is_deleted = ?", userID, false)
	query = applyMailFilter(query, filter)

	var records []*domain.MailEmbedding
	err := query.Order("received_at DESC").Find(&records).Error
	return records, err
}

func (r *mailRepository) CountByTopic(userID string, limit int) ([]*domain.TopicStat, error) {
	var stats []*domain.TopicStat
	err := r.db.Model(&domain.MailEmbedding{}).
		Select("major_topics.id AS topic_id, major_topics.description AS description, COUNT(mail_embeddings.id) AS count").
		Joins("JOIN major_topics ON major_topics.id = mail_embeddings.topic_id").
		Where("mail_embeddings.user_id = ? AND mail_embeddings.is_deleted = ? AND mail_embeddings.topic_id IS NOT NULL", userID, false).
		Group("major_topics.id, major_topics.description").
		Order("count DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}

func (r *mailRepository) FindByTopic(userID string, topicID int, filter domain.MailFilter) ([]*domain.MailEmbedding, error) {
	query := r.db.Where("user_id = ? AND is_deleted = ? AND topic_id = ?", userID, false, topicID)
	query = applyMailFilter(query, filter)

	var records []*domain.MailEmbedding
	err := query.Order("received_at DESC").Find(&records).Error
	return records, err
}

// applyMailFilter narrows a record query by the optional filter fields
func applyMailFilter(query *gorm.DB, filter domain.MailFilter) *gorm.DB {
	if filter.Sender != "" {
		query = query.Where("sender ILIKE ?", "%"+filter.Sender+"%")
	}
	if filter.StartDate != nil {
		query = query.Where("received_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("received_at <= ?", *filter.EndDate)
	}
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}
	if filter.OlderThanMonths != nil {
		cutoff := time.Now().AddDate(0, -*filter.OlderThanMonths, 0)
		query = query.Where("received_at <= ?", cutoff)
	}
	if filter.MinSizeBytes != nil {
		query = query.Where("size_bytes >= ?", *filter.MinSizeBytes)
	}
	return query
}

// senderDisplayName extracts the human name from "Name <addr>" senders
func senderDisplayName(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil || addr.Name == "" {
		return "(Unknown)"
	}
	return addr.Name
}
