package usecase

import (
	"fmt"
	"log"
	"math"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/internal/analysis/repository"
)

const (
	// PromotionsTopicID is the reserved topic for promotional mail
	PromotionsTopicID = 5

	promotionsLabel = "CATEGORY_PROMOTIONS"

	// similarityThreshold is inclusive: a best match exactly at the
	// threshold is assigned.
	similarityThreshold = 0.4

	// cosineEpsilon keeps the denominator non-zero for degenerate vectors
	cosineEpsilon = 1e-10
)

// TopicClassifier assigns a coarse topic to newly stored, unclassified
// mail records via nearest-centroid cosine similarity. Records below the
// threshold stay unassigned and are re-evaluated on a later pass.
type TopicClassifier struct {
	mailRepo  repository.MailRepository
	topicRepo repository.TopicRepository
}

func NewTopicClassifier(mailRepo repository.MailRepository, topicRepo repository.TopicRepository) *TopicClassifier {
	return &TopicClassifier{
		mailRepo:  mailRepo,
		topicRepo: topicRepo,
	}
}

// ClassifyPending runs one batch pass over all unclassified, non-deleted
// records. Per-record failures are logged and skipped so one bad record
// cannot block the rest.
func (c *TopicClassifier) ClassifyPending() error {
	centroids, err := c.topicRepo.ListCentroids()
	if err != nil {
		return fmt.Errorf("failed to load topic centroids: %w", err)
	}

	records, err := c.mailRepo.FindUnclassified()
	if err != nil {
		return fmt.Errorf("failed to load unclassified records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	assigned := 0
	for _, rec := range records {
		topicID, ok := c.classify(rec, centroids)
		if !ok {
			continue
		}
		if err := c.mailRepo.AssignTopic(rec.ID, topicID); err != nil {
			log.Printf("[Classifier] Failed to assign topic %d to record %s: %v", topicID, rec.ID, err)
			continue
		}
		assigned++
	}

	log.Printf("[Classifier] Assigned topics to %d of %d candidates", assigned, len(records))
	return nil
}

// classify picks a topic for one record, or reports no assignment.
// The promotions label wins over any similarity score.
func (c *TopicClassifier) classify(rec *domain.MailEmbedding, centroids []*domain.MajorTopicEmbedding) (int, bool) {
	for _, label := range rec.Labels {
		if label == promotionsLabel {
			return PromotionsTopicID, true
		}
	}

	vec := rec.Vector.Slice()
	if len(vec) == 0 {
		return 0, false
	}

	bestID := 0
	bestSim := math.Inf(-1)
	for _, centroid := range centroids {
		sim := cosineSimilarity(vec, centroid.Vector.Slice())
		if sim > bestSim {
			bestSim = sim
			bestID = centroid.TopicID
		}
	}

	if bestID == 0 || bestSim < similarityThreshold {
		return 0, false
	}
	return bestID, true
}

// cosineSimilarity is dot(a,b) / (|a|*|b| + eps)
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}
