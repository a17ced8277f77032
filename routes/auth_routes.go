package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authController := controllers.NewAuthController()

	api := app.Group(config.MAIN_ROUTES + "/auth")
	api.Post("/login", authController.Login)
	api.Post("/refresh", authController.RefreshToken)

	apiLogout := app.Group(config.MAIN_ROUTES+"/auth", middleware.AuthMiddleware)
	apiLogout.Get("/logout", authController.Logout)
}
