package repository

import (
	"errors"

	"mailgreen-backend/internal/analysis/domain"

	"gorm.io/gorm"
)

// topicRepository implements TopicRepository using GORM.
// Topics and centroids are read-only here; they are maintained by an
// external pipeline.
type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new instance of topicRepository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{
		db: db,
	}
}

func (r *topicRepository) ListTopics() ([]*domain.MajorTopic, error) {
	var topics []*domain.MajorTopic
	err := r.db.Order("id ASC").Find(&topics).Error
	return topics, err
}

func (r *topicRepository) FindByID(id int) (*domain.MajorTopic, error) {
	var topic domain.MajorTopic
	err := r.db.First(&topic, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepository) ListCentroids() ([]*domain.MajorTopicEmbedding, error) {
	var centroids []*domain.MajorTopicEmbedding
	err := r.db.Find(&centroids).Error
	return centroids, err
}
