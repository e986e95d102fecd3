package usecase

import (
	"context"
	"errors"
	"log"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/pkg/backoff"
)

// mailFetcher turns a prior cursor into the run's working set: a full
// listing on cold start, the change-history delta otherwise, with all
// metadata resolved through grouped, backoff-protected requests.
type mailFetcher struct {
	client     domain.MailClient
	batchSize  int
	maxRetries int
}

func newMailFetcher(client domain.MailClient, batchSize, maxRetries int) *mailFetcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &mailFetcher{
		client:     client,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}
}

func (f *mailFetcher) executor() *backoff.Executor {
	return backoff.New(f.maxRetries, f.client.IsRateLimit)
}

// FetchWorkingSet resolves the messages this run must process. Output
// order is not guaranteed.
func (f *mailFetcher) FetchWorkingSet(ctx context.Context, priorCursor string) ([]*domain.ParsedMail, error) {
	var ids []string
	var err error

	if priorCursor == "" {
		ids, err = backoff.Execute(f.executor(), func() ([]string, error) {
			return f.client.ListAllMessageIDs(ctx)
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[Fetch] Initial load: %d messages", len(ids))
	} else {
		ids, err = backoff.Execute(f.executor(), func() ([]string, error) {
			return f.client.ListAddedMessageIDs(ctx, priorCursor)
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[Fetch] Delta sync from cursor %s: %d new messages", priorCursor, len(ids))
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return f.fetchMetadata(ctx, ids), nil
}

// fetchMetadata resolves message metadata best-effort: one grouped
// request per fixed-size batch, then one individual retry per id still
// missing. The result may be smaller than the input.
func (f *mailFetcher) fetchMetadata(ctx context.Context, ids []string) []*domain.ParsedMail {
	mails := make([]*domain.ParsedMail, 0, len(ids))

	for start := 0; start < len(ids); start += f.batchSize {
		end := start + f.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		fetched, err := backoff.Execute(f.executor(), func() ([]*domain.ParsedMail, error) {
			return f.client.GetMessageMetadataBatch(ctx, batch)
		})
		if err != nil {
			// Not fatal: the batch's ids stay missing and get one
			// individual retry below.
			log.Printf("[Fetch] Batch fetch error for %d ids: %v", len(batch), err)
			continue
		}
		mails = append(mails, fetched...)
	}

	fetchedIDs := make(map[string]bool, len(mails))
	for _, m := range mails {
		fetchedIDs[m.ID] = true
	}

	var missing []string
	for _, id := range ids {
		if !fetchedIDs[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return mails
	}

	log.Printf("[Fetch] Fetched %d of %d, retrying %d missing ids individually",
		len(mails), len(ids), len(missing))

	for _, id := range missing {
		mail, err := backoff.Execute(f.executor(), func() (*domain.ParsedMail, error) {
			return f.client.GetMessageMetadata(ctx, id)
		})
		if err != nil {
			if errors.Is(err, domain.ErrMessageNotFound) {
				// Deleted upstream; expected, skip silently.
				continue
			}
			log.Printf("[Fetch] ID=%s fetch failed even after retries: %v", id, err)
			continue
		}
		mails = append(mails, mail)
	}

	return mails
}
