package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"
	"refurb-app/services/intake"

	"github.com/gofiber/fiber/v2"
)

func SetupIntakeRoutes(app *fiber.App, manager *intake.Manager) {
	api := app.Group(config.MAIN_ROUTES+"/intake/sessions", middleware.AuthMiddleware)
	intakeController := controllers.NewIntakeController(manager)

	api.Post("/", intakeController.Open)
	api.Get("/:sid", intakeController.Get)
	api.Post("/:sid/scan", intakeController.Scan)
	api.Put("/:sid/settings", intakeController.UpdateSettings)
	api.Put("/:sid/mode", intakeController.SetMode)
	api.Delete("/:sid/queue/:index", intakeController.RemoveQueued)
	api.Delete("/:sid/error", intakeController.ClearError)
	api.Post("/:sid/submit", intakeController.SubmitAll)
	api.Delete("/:sid", intakeController.Close)
}
