package middleware

import (
	"strings"
	"time"

	"refurb-app/config"
	"refurb-app/database"
	"refurb-app/repositories"
	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func unauthorized(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// AuthMiddleware validates the bearer token and its user session, then stores userID, sessionID,
// unit and the unit database in the request locals.
func AuthMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if authHeader == "" {
		return unauthorized(ctx, "Missing Authorization header")
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
		return unauthorized(ctx, "Invalid Authorization header format")
	}

	token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: Invalid signing method")
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil {
		zap.L().Debug("token rejected", zap.Error(err))
		return unauthorized(ctx, "Unauthorized: Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return unauthorized(ctx, "Unauthorized: Invalid token")
	}

	rawUserID, _ := claims["user_id"].(string)
	userID, err := types.ParseSnowflakeID(rawUserID)
	if err != nil {
		return unauthorized(ctx, "Unauthorized: Invalid user ID")
	}

	unit, ok := claims["unit"].(string)
	if !ok || unit == "" {
		return unauthorized(ctx, "Unauthorized: Invalid unit")
	}

	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return unauthorized(ctx, "Unauthorized: Invalid sessionID")
	}

	db, err := database.GetDBConnection(unit)
	if err != nil {
		zap.L().Error("unit database unavailable", zap.String("unit", unit), zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to connect database",
		})
	}

	now := time.Now()
	users := repositories.NewUserRepository(db)
	session, err := users.ActiveSession(ctx.Context(), sessionID, now)
	if err != nil || session.UserID != userID {
		return unauthorized(ctx, "Unauthorized: Invalid sessionID")
	}
	if err := users.TouchSession(ctx.Context(), session.ID, now); err != nil {
		zap.L().Warn("failed to update session activity", zap.String("session_id", sessionID), zap.Error(err))
	}

	ctx.Locals("userID", userID)
	ctx.Locals("sessionID", sessionID)
	ctx.Locals("unit", unit)
	ctx.Locals("db", db)

	return ctx.Next()
}
