package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/DALF-G/spidexMarket/internal/metrics"
	"github.com/DALF-G/spidexMarket/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserNotFound    = errors.New("user not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrMessageNotFound = errors.New("message not found")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type listingReader interface {
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
}

type messageStore interface {
	Create(ctx context.Context, senderID, receiverID int64, listingID *int64, content string) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	GetDetailByID(ctx context.Context, id int64) (*models.MessageDetail, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]models.MessageDetail, error)
	ListBetween(ctx context.Context, userID, peerID int64, listingID *int64) ([]models.MessageDetail, error)
	MarkSeen(ctx context.Context, id int64) error
}

type relay interface {
	Deliver(userID string, message any)
}

type MessageService struct {
	messageRepo messageStore
	userRepo    userReader
	listingRepo listingReader
	relay       relay
}

func NewMessageService(
	messageRepo messageStore,
	userRepo userReader,
	listingRepo listingReader,
	relay relay,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		relay:       relay,
	}
}

type SendMessageInput struct {
	ReceiverID int64
	ListingID  *int64
	Content    string
	// SenderID is accepted for legacy clients only. When present it must
	// match the authenticated sender; it is never used as the sender.
	SenderID *int64
}

func (s *MessageService) Send(
	ctx context.Context,
	senderID int64,
	input SendMessageInput,
) (*models.MessageDetail, error) {
	if senderID <= 0 {
		return nil, ErrForbidden
	}
	if input.SenderID != nil && *input.SenderID != senderID {
		return nil, ErrForbidden
	}

	content := strings.TrimSpace(input.Content)
	if content == "" || input.ReceiverID <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, senderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, input.ReceiverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if input.ListingID != nil {
		if _, err := s.listingRepo.GetByID(ctx, *input.ListingID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrListingNotFound
			}
			return nil, err
		}
	}

	message, err := s.messageRepo.Create(ctx, senderID, input.ReceiverID, input.ListingID, content)
	if err != nil {
		return nil, err
	}

	detail, err := s.messageRepo.GetDetailByID(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()

	// Persistence has committed; delivery is fire-and-forget and must not
	// fail the request.
	if s.relay != nil {
		s.relay.Deliver(strconv.FormatInt(detail.ReceiverID, 10), detail)
	}

	return detail, nil
}

// ListForUser returns every message the user participates in, newest first.
// A limit of zero returns the full history.
func (s *MessageService) ListForUser(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.MessageDetail, error) {
	if userID <= 0 {
		return nil, ErrForbidden
	}
	if limit < 0 {
		return nil, ErrInvalidInput
	}

	return s.messageRepo.ListForUser(ctx, userID, limit)
}

// ListConversations returns the newest message of each (peer, listing)
// conversation the user participates in, most recent conversation first.
func (s *MessageService) ListConversations(
	ctx context.Context,
	userID int64,
) ([]models.MessageDetail, error) {
	if userID <= 0 {
		return nil, ErrForbidden
	}

	messages, err := s.messageRepo.ListForUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	return LatestPerConversation(messages, userID), nil
}

// GetConversation returns both directions of the {userID, peerID} thread in
// chronological reading order, optionally scoped to a single listing.
func (s *MessageService) GetConversation(
	ctx context.Context,
	userID int64,
	peerID int64,
	listingID *int64,
) ([]models.MessageDetail, error) {
	if userID <= 0 {
		return nil, ErrForbidden
	}
	if peerID <= 0 {
		return nil, ErrInvalidInput
	}

	return s.messageRepo.ListBetween(ctx, userID, peerID, listingID)
}

// MarkSeen flips the seen flag of a message the actor received. Re-marking
// an already seen message is a no-op success.
func (s *MessageService) MarkSeen(
	ctx context.Context,
	actorID int64,
	messageID int64,
) (*models.MessageDetail, error) {
	if messageID <= 0 {
		return nil, ErrInvalidInput
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if message.ReceiverID != actorID {
		return nil, ErrForbidden
	}

	if !message.Seen {
		if err := s.messageRepo.MarkSeen(ctx, messageID); err != nil {
			return nil, err
		}
	}

	return s.messageRepo.GetDetailByID(ctx, messageID)
}
