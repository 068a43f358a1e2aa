package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/DALF-G/spidexMarket/internal/models"
	"github.com/DALF-G/spidexMarket/internal/services"
	chatws "github.com/DALF-G/spidexMarket/internal/websocket"
	"github.com/DALF-G/spidexMarket/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

const maxMessageLimit = 200

type messageApplicationService interface {
	Send(ctx context.Context, senderID int64, input services.SendMessageInput) (*models.MessageDetail, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]models.MessageDetail, error)
	ListConversations(ctx context.Context, userID int64) ([]models.MessageDetail, error)
	GetConversation(ctx context.Context, userID, peerID int64, listingID *int64) ([]models.MessageDetail, error)
	MarkSeen(ctx context.Context, actorID, messageID int64) (*models.MessageDetail, error)
}

type MessageHandler struct {
	service   messageApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

func NewMessageHandler(service messageApplicationService, hub *chatws.Hub, jwtSecret string) *MessageHandler {
	return &MessageHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type sendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	ListingID  *int64 `json:"listing_id"`
	Content    string `json:"content"`
	SenderID   *int64 `json:"sender_id"`
}

type markSeenRequest struct {
	MessageID int64 `json:"message_id"`
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid request body")
	}

	message, err := h.service.Send(c.Context(), actorID, services.SendMessageInput{
		ReceiverID: req.ReceiverID,
		ListingID:  req.ListingID,
		Content:    req.Content,
		SenderID:   req.SenderID,
	})
	if err != nil {
		return mapMessageError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *MessageHandler) ListMyMessages(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	// No limit means the full history, matching the original behavior.
	limit := parsePositiveInt(c.Query("limit"), 0)
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	messages, err := h.service.ListForUser(c.Context(), actorID, limit)
	if err != nil {
		return mapMessageError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *MessageHandler) ListChats(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	chats, err := h.service.ListConversations(c.Context(), actorID)
	if err != nil {
		return mapMessageError(c, err)
	}

	return c.JSON(fiber.Map{"chats": chats})
}

func (h *MessageHandler) GetConversation(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	peerID, err := strconv.ParseInt(c.Params("peerId"), 10, 64)
	if err != nil || peerID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid peer id")
	}

	var listingID *int64
	if raw := c.Query("listing_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid listing id")
		}
		listingID = &parsed
	}

	messages, err := h.service.GetConversation(c.Context(), actorID, peerID, listingID)
	if err != nil {
		return mapMessageError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *MessageHandler) MarkSeen(c *fiber.Ctx) error {
	actorID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	var req markSeenRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid request body")
	}
	if req.MessageID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "message_id required")
	}

	message, err := h.service.MarkSeen(c.Context(), actorID, req.MessageID)
	if err != nil {
		return mapMessageError(c, err)
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *MessageHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return errorResponse(c, fiber.StatusUpgradeRequired, "validation_error", "WebSocket upgrade required")
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *MessageHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := chatws.NewClient(h.hub, conn, userID)

	go client.WritePump()
	client.ReadPump()
}

func (h *MessageHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func parseAuthUserID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func errorResponse(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

func mapMessageError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid request")
	case errors.Is(err, services.ErrForbidden):
		return errorResponse(c, fiber.StatusForbidden, "forbidden", "Forbidden")
	case errors.Is(err, services.ErrUserNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, services.ErrListingNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Listing not found")
	case errors.Is(err, services.ErrMessageNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Message not found")
	case errors.Is(err, pgx.ErrNoRows):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Not found")
	default:
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to process message request")
	}
}
