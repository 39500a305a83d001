package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
	"github.com/gtclicks/ledger-backend/pkg/pagination"
)

type inboxStore interface {
	Page(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Find(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, at time.Time, ids ...uuid.UUID) (int64, error)
}

// Inbox is the read side of in-app notices.
type Inbox struct {
	store inboxStore
	now   func() time.Time
}

func NewInbox(store inboxStore) (*Inbox, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	return &Inbox{store: store, now: time.Now}, nil
}

type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type Notice struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type Page struct {
	Items  []Notice `json:"items"`
	Cursor string   `json:"cursor"`
	Unread int64    `json:"unread"`
}

func (i *Inbox) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	limit, cursor, err := pagination.Params{Limit: params.Limit, Cursor: params.Cursor}.Resolve()
	if err != nil {
		return nil, err
	}
	rows, next, err := i.store.Page(ctx, params.UserID, params.UnreadOnly, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := i.store.CountUnread(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	page := &Page{Items: make([]Notice, 0, len(rows)), Cursor: pagination.EncodeNext(next), Unread: unread}
	for _, n := range rows {
		page.Items = append(page.Items, Notice{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return page, nil
}

// MarkRead is idempotent for the owner; anyone else gets not found.
func (i *Inbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	notice, err := i.store.Find(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if notice == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if notice.ReadAt != nil {
		return nil
	}
	if _, err := i.store.MarkRead(ctx, userID, i.now().UTC(), notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	n, err := i.store.MarkRead(ctx, userID, i.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
