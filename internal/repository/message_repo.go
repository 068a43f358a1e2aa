package repository

import (
	"context"
	"database/sql"

	"github.com/DALF-G/spidexMarket/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageDetailSelect = `
	SELECT
		m.id, m.sender_id, m.receiver_id, m.listing_id, m.content, m.seen, m.created_at,
		s.name, s.email, s.phone, s.profile_image,
		r.name, r.email, r.phone, r.profile_image,
		l.id, l.title, l.price, COALESCE(l.photos, '{}')
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id
	LEFT JOIN listings l ON l.id = m.listing_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessageDetail(row rowScanner) (*models.MessageDetail, error) {
	var detail models.MessageDetail
	var listingRef sql.NullInt64
	var listingID sql.NullInt64
	var listingTitle sql.NullString
	var listingPrice sql.NullFloat64
	var listingPhotos []string

	err := row.Scan(
		&detail.ID,
		&detail.SenderID,
		&detail.ReceiverID,
		&listingRef,
		&detail.Content,
		&detail.Seen,
		&detail.CreatedAt,
		&detail.Sender.Name,
		&detail.Sender.Email,
		&detail.Sender.Phone,
		&detail.Sender.ProfileImage,
		&detail.Receiver.Name,
		&detail.Receiver.Email,
		&detail.Receiver.Phone,
		&detail.Receiver.ProfileImage,
		&listingID,
		&listingTitle,
		&listingPrice,
		&listingPhotos,
	)
	if err != nil {
		return nil, err
	}

	detail.Sender.ID = detail.SenderID
	detail.Receiver.ID = detail.ReceiverID
	if listingRef.Valid {
		ref := listingRef.Int64
		detail.ListingID = &ref
	}
	if listingID.Valid {
		detail.Listing = &models.ListingSummary{
			ID:     listingID.Int64,
			Title:  listingTitle.String,
			Price:  listingPrice.Float64,
			Photos: listingPhotos,
		}
	}

	return &detail, nil
}

func (r *MessageRepository) Create(
	ctx context.Context,
	senderID int64,
	receiverID int64,
	listingID *int64,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, listing_id, content, seen)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, sender_id, receiver_id, listing_id, content, seen, created_at
	`

	var message models.Message
	var listingRef sql.NullInt64
	err := r.db.QueryRow(ctx, query, senderID, receiverID, listingID, content).Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&listingRef,
		&message.Content,
		&message.Seen,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if listingRef.Valid {
		ref := listingRef.Int64
		message.ListingID = &ref
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, listing_id, content, seen, created_at
		FROM messages
		WHERE id = $1
	`

	var message models.Message
	var listingRef sql.NullInt64
	err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&listingRef,
		&message.Content,
		&message.Seen,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if listingRef.Valid {
		ref := listingRef.Int64
		message.ListingID = &ref
	}

	return &message, nil
}

func (r *MessageRepository) GetDetailByID(ctx context.Context, id int64) (*models.MessageDetail, error) {
	query := messageDetailSelect + `
		WHERE m.id = $1
	`
	return scanMessageDetail(r.db.QueryRow(ctx, query, id))
}

// ListForUser returns every message the user sent or received, newest first.
// A limit of zero means no limit.
func (r *MessageRepository) ListForUser(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.MessageDetail, error) {
	query := messageDetailSelect + `
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		detail, err := scanMessageDetail(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// ListBetween returns both directions of the {userID, peerID} pair in
// chronological reading order, optionally filtered to one listing.
func (r *MessageRepository) ListBetween(
	ctx context.Context,
	userID int64,
	peerID int64,
	listingID *int64,
) ([]models.MessageDetail, error) {
	query := messageDetailSelect + `
		WHERE ((m.sender_id = $1 AND m.receiver_id = $2)
		    OR (m.sender_id = $2 AND m.receiver_id = $1))
	`
	args := []any{userID, peerID}
	if listingID != nil {
		query += ` AND m.listing_id = $3`
		args = append(args, *listingID)
	}
	query += `
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		detail, err := scanMessageDetail(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) MarkSeen(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET seen = TRUE
		WHERE id = $1
		  AND seen = FALSE
	`, id)
	return err
}
