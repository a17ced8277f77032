package controllers

import (
	"errors"
	"fmt"
	"time"

	"refurb-app/config"
	"refurb-app/database"
	"refurb-app/models"
	"refurb-app/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct{}

func NewAuthController() *AuthController {
	return &AuthController{}
}

func tokenTTL() time.Duration {
	return time.Duration(config.JWTExpiration) * time.Second
}

func signToken(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.JWTSecret))
}

func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid request")
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(ctx, "Missing required fields")
	}

	db, err := database.GetDBConnection(config.DBUnit)
	if err != nil {
		return serverError(ctx, "Failed to connect to database", err)
	}
	users := repositories.NewUserRepository(db)

	user, err := users.FindByLogin(ctx.Context(), input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Info("login failed", zap.String("login", input.Email), zap.String("reason", "user_not_found"))
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid username or password",
			})
		}
		return serverError(ctx, "Failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		zap.L().Info("login failed", zap.String("login", input.Email), zap.String("reason", "wrong_password"))
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid username or password",
		})
	}

	now := time.Now()
	session := models.UserSession{
		UserID:         user.ID,
		SessionID:      uuid.NewString(),
		IPAddress:      ctx.IP(),
		UserAgent:      ctx.Get("User-Agent"),
		IsActive:       true,
		LastActivityAt: now,
		ExpiresAt:      now.Add(tokenTTL()),
	}
	if err := users.CreateSession(ctx.Context(), &session); err != nil {
		return serverError(ctx, "Failed to create session", err)
	}

	accessToken, err := signToken(jwt.MapClaims{
		"user_id":    user.ID.String(),
		"session_id": session.SessionID,
		"unit":       config.DBUnit,
		"exp":        session.ExpiresAt.Unix(),
		"jti":        uuid.NewString(),
	})
	if err != nil {
		return serverError(ctx, "Failed to generate token", err)
	}
	refreshToken, err := signToken(jwt.MapClaims{
		"user_id":    user.ID.String(),
		"session_id": session.SessionID,
		"unit":       config.DBUnit,
		"exp":        session.ExpiresAt.Unix(),
		"jti":        uuid.NewString(),
	})
	if err != nil {
		return serverError(ctx, "Failed to generate token", err)
	}

	ctx.Cookie(config.GetTokenCookie(refreshToken))

	zap.L().Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("session_id", session.SessionID))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successfully",
		"x_token": accessToken,
		"user": fiber.Map{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
			"name":     user.Name,
			"role":     user.Role,
			"unit":     config.DBUnit,
		},
	})
}

// RefreshToken issues a new access token from the refresh cookie while its session is still active.
func (c *AuthController) RefreshToken(ctx *fiber.Ctx) error {
	tokenString := ctx.Cookies("refresh_token")
	if tokenString == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized - refresh token not found",
		})
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}
	unit, _ := claims["unit"].(string)
	sessionID, _ := claims["session_id"].(string)

	db, err := database.GetDBConnection(unit)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}
	session, err := repositories.NewUserRepository(db).ActiveSession(ctx.Context(), sessionID, time.Now())
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	accessToken, err := signToken(jwt.MapClaims{
		"user_id":    claims["user_id"],
		"session_id": sessionID,
		"unit":       unit,
		"exp":        session.ExpiresAt.Unix(),
		"jti":        uuid.NewString(),
	})
	if err != nil {
		return serverError(ctx, "Failed to generate token", err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":      true,
		"message":      "Token refreshed successfully",
		"access_token": accessToken,
	})
}

func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	sessionID, ok := ctx.Locals("sessionID").(string)
	if !ok || sessionID == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "invalid session"})
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	closed, err := repositories.NewUserRepository(db).DeactivateSession(ctx.Context(), sessionID, time.Now())
	if err != nil {
		return serverError(ctx, "Failed to close session", err)
	}
	if !closed {
		zap.L().Warn("logout on a session that was not active", zap.String("session_id", sessionID))
	}

	ctx.Cookie(config.GetTokenCookie(""))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}
