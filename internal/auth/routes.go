package auth

import "github.com/gofiber/fiber/v3"

func Routes(app fiber.Router, users Users) {
	h := &handlers{users: users}

	auth := app.Group("/auth")

	auth.Post("/login", h.loginHandler)
	auth.Get("/me", Middleware(users), h.meHandler)
}
