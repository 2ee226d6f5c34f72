package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func NewRouter(apiHandler *APIHandler, corsOptions cors.Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.New(corsOptions).Handler)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", apiHandler.HealthHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/users", apiHandler.SearchUsersHandler)
			r.Get("/users/me", apiHandler.GetMeHandler)
			r.Patch("/users/me", apiHandler.UpdateMeHandler)
			r.Post("/users/me/avatar", apiHandler.AvatarUploadHandler)
			r.Post("/users/me/avatar/confirm", apiHandler.AvatarConfirmHandler)
			r.Get("/users/{userID}", apiHandler.GetUserHandler)

			r.Post("/chats", apiHandler.CreateChatHandler)
			r.Get("/chats", apiHandler.ListChatsHandler)
			r.Get("/chats/{chatID}/messages", apiHandler.GetMessagesHandler)
			r.Post("/chats/{chatID}/messages", apiHandler.PostMessageHandler)
			r.Get("/chats/{chatID}/ws", apiHandler.MessagesWSHandler)
		})
	})

	return r
}
