package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
)

type Repository interface {
	Insert(ctx context.Context, n Notification) (*Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error)
}

const columns = `id, user_id, type, message, read, created_at`

// PgRepository works on a pool or on a transaction, see db.DBTX.
type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, false, now())
		RETURNING `+columns,
		uuid.New(), n.UserID, n.Type, n.Message)
	return scanNotification(row)
}

func (r *PgRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM notifications
		WHERE user_id = $1
		  AND ($2 = false OR NOT read)
		ORDER BY created_at DESC
		LIMIT 100
	`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND user_id = $2
		RETURNING `+columns,
		id, userID)
	return scanNotification(row)
}
