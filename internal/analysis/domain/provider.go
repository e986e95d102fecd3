package domain

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is a callback that persists refreshed OAuth tokens
type TokenUpdateFunc func(token *oauth2.Token) error

// ParsedMail is the provider-neutral metadata of one fetched message
type ParsedMail struct {
	ID         string
	ThreadID   string
	Sender     string
	Subject    string
	Snippet    string
	Labels     []string
	SizeBytes  int64
	IsRead     bool
	IsStarred  bool
	ReceivedAt time.Time
}

// ErrMessageNotFound marks a message that no longer exists upstream
// (deleted between the listing and the metadata fetch). Callers treat
// it as expected and skip the message.
var ErrMessageNotFound = errors.New("message not found")

// MailClient is a remote mailbox bound to one user's credentials.
// Every method is a blocking remote call.
type MailClient interface {
	// ListAllMessageIDs pages through the full mailbox listing
	ListAllMessageIDs(ctx context.Context) ([]string, error)
	// ListAddedMessageIDs returns ids of messages added since the cursor
	ListAddedMessageIDs(ctx context.Context, startCursor string) ([]string, error)
	// CurrentCursor returns the provider's present change-history position
	CurrentCursor(ctx context.Context) (string, error)
	// GetMessageMetadata fetches one message; ErrMessageNotFound if gone
	GetMessageMetadata(ctx context.Context, id string) (*ParsedMail, error)
	// GetMessageMetadataBatch fetches a group of messages in one grouped
	// request. Ids missing from the result are not an error.
	GetMessageMetadataBatch(ctx context.Context, ids []string) ([]*ParsedMail, error)
	// IsRateLimit classifies an error from this client as rate limiting
	IsRateLimit(err error) bool
	// Trash, Archive and Spam apply the corresponding provider action
	Trash(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	Spam(ctx context.Context, id string) error
}

// MailProvider builds MailClients from stored user credentials
type MailProvider interface {
	ClientForUser(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (MailClient, error)
}
