package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/internal/analysis/repository"
	authdomain "mailgreen-backend/internal/auth/domain"
	authrepo "mailgreen-backend/internal/auth/repository"
	"mailgreen-backend/pkg/embed"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/oauth2"
)

// maxEmbedTextLen bounds the text sent to the embedding producer
const maxEmbedTextLen = 2000

// Runner executes one analysis task: fetch the working set, embed each
// message, store records in chunks with checkpointed progress, then
// advance the provider cursor. It is the only writer of the task row.
type Runner struct {
	taskRepo   repository.TaskRepository
	mailRepo   repository.MailRepository
	credsRepo  authrepo.UserRepository
	provider   domain.MailProvider
	embedder   embed.Embedder
	classifier *TopicClassifier

	batchSize       int
	maxRetries      int
	insertChunkSize int
}

func NewRunner(
	taskRepo repository.TaskRepository,
	mailRepo repository.MailRepository,
	credsRepo authrepo.UserRepository,
	provider domain.MailProvider,
	embedder embed.Embedder,
	classifier *TopicClassifier,
	batchSize, maxRetries, insertChunkSize int,
) *Runner {
	if insertChunkSize <= 0 {
		insertChunkSize = 50
	}
	return &Runner{
		taskRepo:        taskRepo,
		mailRepo:        mailRepo,
		credsRepo:       credsRepo,
		provider:        provider,
		embedder:        embedder,
		classifier:      classifier,
		batchSize:       batchSize,
		maxRetries:      maxRetries,
		insertChunkSize: insertChunkSize,
	}
}

// Execute runs the task to completion. On any failure the task's cursor
// is restored to its entry value, the task is marked failed and the
// error is returned so the hosting worker can log or re-queue it.
// The classifier pass runs afterwards either way; its failure never
// overrides the run's recorded outcome.
func (r *Runner) Execute(ctx context.Context, userID, taskID, checkpointOverride string) error {
	task, err := r.taskRepo.FindByID(taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if task == nil {
		// Fatal: nothing to mark failed, the caller owns re-trigger policy.
		return fmt.Errorf("analysis task %s not found", taskID)
	}

	entryCursor := task.HistoryID

	priorCursor := ""
	if checkpointOverride != "" {
		priorCursor = checkpointOverride
	} else if task.HistoryID != nil {
		priorCursor = *task.HistoryID
	}

	runErr := r.run(ctx, userID, task, priorCursor)
	if runErr != nil {
		if markErr := r.taskRepo.MarkFailed(task.ID, runErr.Error(), entryCursor); markErr != nil {
			log.Printf("[Runner] Failed to mark task %s failed: %v", task.ID, markErr)
		}
	}

	// Best-effort classification pass, success or failure.
	if r.classifier != nil {
		if err := r.classifier.ClassifyPending(); err != nil {
			log.Printf("[Runner] Classifier pass failed: %v", err)
		}
	}

	return runErr
}

func (r *Runner) run(ctx context.Context, userID string, task *domain.AnalysisTask, priorCursor string) error {
	client, err := r.clientForUser(ctx, userID)
	if err != nil {
		return err
	}

	fetcher := newMailFetcher(client, r.batchSize, r.maxRetries)
	mails, err := fetcher.FetchWorkingSet(ctx, priorCursor)
	if err != nil {
		return fmt.Errorf("failed to fetch working set: %w", err)
	}

	total := len(mails)
	log.Printf("[Runner] Task %s: processing %d messages", task.ID, total)

	buffer := make([]*domain.MailEmbedding, 0, r.insertChunkSize)
	lastPersistedPct := 0

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := r.mailRepo.InsertBatch(buffer); err != nil {
			return fmt.Errorf("failed to insert mail records: %w", err)
		}
		buffer = buffer[:0]
		return nil
	}

	for idx, mail := range mails {
		record, err := r.buildRecord(ctx, userID, mail)
		if err != nil {
			return err
		}
		buffer = append(buffer, record)

		pct := (idx + 1) * 100 / total
		flushed := false
		if len(buffer) >= r.insertChunkSize {
			if err := flush(); err != nil {
				return err
			}
			flushed = true
		}

		// Persist progress after every chunk and whenever a 5-point
		// boundary is crossed, so the progress query stays near-live.
		if flushed || pct/5 > lastPersistedPct/5 {
			if err := r.taskRepo.UpdateProgress(task.ID, pct); err != nil {
				return fmt.Errorf("failed to update progress: %w", err)
			}
			lastPersistedPct = pct
		}
	}

	if err := flush(); err != nil {
		return err
	}

	cursor, err := client.CurrentCursor(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current cursor: %w", err)
	}

	if err := r.taskRepo.MarkDone(task.ID, cursor); err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	log.Printf("[Runner] Task %s done, cursor advanced to %s", task.ID, cursor)
	return nil
}

func (r *Runner) buildRecord(ctx context.Context, userID string, mail *domain.ParsedMail) (*domain.MailEmbedding, error) {
	// A blank subject+snippet must reach the embedder as "" so it gets
	// a local zero vector instead of a remote call.
	text := strings.TrimSpace(mail.Subject + " " + mail.Snippet)
	if len(text) > maxEmbedTextLen {
		cut := maxEmbedTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed message %s: %w", mail.ID, err)
	}

	return &domain.MailEmbedding{
		ID:          uuid.New().String(),
		UserID:      userID,
		GmailMsgID:  mail.ID,
		ThreadID:    mail.ThreadID,
		Sender:      mail.Sender,
		Subject:     mail.Subject,
		Snippet:     mail.Snippet,
		Labels:      mail.Labels,
		SizeBytes:   mail.SizeBytes,
		IsRead:      mail.IsRead,
		IsStarred:   mail.IsStarred,
		ReceivedAt:  mail.ReceivedAt,
		Vector:      pgvector.NewVector(vectors[0]),
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// clientForUser builds a provider client from the user's stored
// credentials, wiring refreshed tokens back into the store.
func (r *Runner) clientForUser(ctx context.Context, userID string) (domain.MailClient, error) {
	creds, err := r.credsRepo.FindCredentials(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return nil, fmt.Errorf("no mail credentials stored for user %s", userID)
	}

	onRefresh := func(token *oauth2.Token) error {
		updated := &authdomain.UserCredentials{
			UserID:       userID,
			AccessToken:  token.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       token.Expiry,
		}
		if token.RefreshToken != "" {
			updated.RefreshToken = token.RefreshToken
		}
		return r.credsRepo.SaveCredentials(updated)
	}

	return r.provider.ClientForUser(ctx, creds.AccessToken, creds.RefreshToken, onRefresh)
}
