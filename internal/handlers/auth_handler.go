package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/DALF-G/spidexMarket/internal/models"
	"github.com/DALF-G/spidexMarket/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type userAccountStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type AuthHandler struct {
	userRepo  userAccountStore
	jwtSecret string
}

func NewAuthHandler(userRepo userAccountStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Name is required")
	}
	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid email format")
	}
	req.Email = strings.ToLower(parsedEmail.Address)
	if len(req.Password) < 8 {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Password must be at least 8 characters")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Phone is required")
	}
	if req.Role != "buyer" && req.Role != "seller" {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid role")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to hash password")
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashed,
		Phone:        strings.TrimSpace(req.Phone),
		Location:     strings.TrimSpace(req.Location),
		Role:         req.Role,
	}
	if err := h.userRepo.CreateUser(c.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errorResponse(c, fiber.StatusConflict, "conflict", "Email already exists")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to create user")
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Role, h.jwtSecret)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid request body")
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_error", "Invalid email format")
	}
	req.Email = strings.ToLower(parsedEmail.Address)

	user, err := h.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to lookup user")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !user.IsActive {
		return errorResponse(c, fiber.StatusForbidden, "forbidden", "Account is deactivated")
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Role, h.jwtSecret)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid token")
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "internal", "Failed to fetch user")
	}

	return c.JSON(fiber.Map{"user": user})
}
