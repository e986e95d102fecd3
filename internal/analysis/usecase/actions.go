package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mailgreen-backend/internal/analysis/domain"
)

// mailActionCommand applies one provider action to one message
type mailActionCommand struct {
	apply func(ctx context.Context, client domain.MailClient, id string) error
	// softDelete marks whether records should be flagged deleted locally
	softDelete bool
}

// mailActionTable dispatches actions over the enum. Adding an action
// means adding an enum value and a row here.
var mailActionTable = map[domain.MailActionType]mailActionCommand{
	domain.MailActionTrash: {
		apply: func(ctx context.Context, client domain.MailClient, id string) error {
			return client.Trash(ctx, id)
		},
		softDelete: true,
	},
	domain.MailActionArchive: {
		apply: func(ctx context.Context, client domain.MailClient, id string) error {
			return client.Archive(ctx, id)
		},
	},
	domain.MailActionSpam: {
		apply: func(ctx context.Context, client domain.MailClient, id string) error {
			return client.Spam(ctx, id)
		},
		softDelete: true,
	},
}

func (u *analysisUsecase) ApplyMailAction(ctx context.Context, userID string, action domain.MailActionType, ids []string, useLast, dryRun bool) (*ActionResult, error) {
	cmd, ok := mailActionTable[action]
	if !ok {
		return nil, fmt.Errorf("unknown mail action %q", action)
	}

	if useLast {
		lastIDs, found := u.sessions.LastIDs(userID)
		if !found {
			return nil, errors.New("no remembered message selection, list sender details first")
		}
		ids = lastIDs
	}

	if len(ids) == 0 {
		return nil, errors.New("no message ids given")
	}

	result := &ActionResult{
		Action:    action,
		Requested: len(ids),
		DryRun:    dryRun,
	}

	if dryRun {
		result.Succeeded = len(ids)
		return result, nil
	}

	client, err := u.runner.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	succeeded := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := cmd.apply(ctx, client, id); err != nil {
			log.Printf("[MailAction] %s on %s failed: %v", action, id, err)
			result.Failed = append(result.Failed, id)
			continue
		}
		succeeded = append(succeeded, id)
	}
	result.Succeeded = len(succeeded)

	if cmd.softDelete && len(succeeded) > 0 {
		if err := u.mailRepo.MarkDeleted(userID, succeeded); err != nil {
			log.Printf("[MailAction] Failed to flag %d records deleted: %v", len(succeeded), err)
		}
	}

	// The remembered selection no longer matches the mailbox.
	if useLast {
		u.sessions.Clear(userID)
	}

	return result, nil
}
