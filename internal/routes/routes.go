package routes

import (
	"github.com/DALF-G/spidexMarket/internal/config"
	"github.com/DALF-G/spidexMarket/internal/handlers"
	"github.com/DALF-G/spidexMarket/internal/middleware"
	"github.com/DALF-G/spidexMarket/internal/repository"
	"github.com/DALF-G/spidexMarket/internal/services"
	chatws "github.com/DALF-G/spidexMarket/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	hub := chatws.NewHub()
	go hub.Run()

	messageService := services.NewMessageService(messageRepo, userRepo, listingRepo, hub)
	messageHandler := handlers.NewMessageHandler(messageService, hub, cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	messages := protected.Group("/messages")
	messages.Post("/send", messageHandler.SendMessage)
	messages.Get("/my", messageHandler.ListMyMessages)
	messages.Get("", messageHandler.ListChats)
	messages.Get("/conversation/:peerId", messageHandler.GetConversation)
	messages.Put("/seen", messageHandler.MarkSeen)

	api.Use("/v1/ws", messageHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(messageHandler.HandleWebSocket))
}
