package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sujal-surani/NeuroNxt/internal/config"
	"github.com/sujal-surani/NeuroNxt/internal/handlers"
	"github.com/sujal-surani/NeuroNxt/internal/middleware"
	"github.com/sujal-surani/NeuroNxt/internal/repository"
	"github.com/sujal-surani/NeuroNxt/internal/services"
	chatws "github.com/sujal-surani/NeuroNxt/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	profileService := services.NewProfileService(profileRepo, connectionRepo)
	profileHandler := handlers.NewProfileHandler(profileService, profileRepo, storageService)
	connectionHandler := handlers.NewConnectionHandler(connectionRepo)
	noticeHandler := handlers.NewNoticeHandler(noticeRepo, profileRepo)

	chatHub := chatws.NewHub()
	go chatHub.Run()
	chatService := services.NewChatService(db, conversationRepo, messageRepo, profileRepo, connectionRepo, chatHub)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	students := authProtected.Group("/students")
	students.Get("/profile", profileHandler.GetProfile)
	students.Put("/profile", profileHandler.UpdateProfile)
	students.Post("/profile/avatar", profileHandler.UploadAvatar)
	students.Put("/presence", profileHandler.SetPresence)
	students.Get("/connected", connectionHandler.ListConnectedStudents)

	chats := authProtected.Group("/chats")
	chats.Get("", chatHandler.ListContacts)
	chats.Post("/start", chatHandler.StartChat)
	chats.Post("/disconnect", chatHandler.Disconnect)
	chats.Get("/:id/messages", chatHandler.GetMessages)
	chats.Post("/:id/messages", chatHandler.SendMessage)
	chats.Post("/:id/read", chatHandler.MarkRead)
	chats.Put("/:id/pin", chatHandler.SetPinned)
	chats.Post("/:id/clear", chatHandler.ClearChat)
	chats.Delete("/:id", chatHandler.DeleteChat)

	notices := authProtected.Group("/notices")
	notices.Get("", noticeHandler.ListNotices)
	notices.Post("", noticeHandler.CreateNotice)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
