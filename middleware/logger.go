package middleware

import (
	"time"

	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()

		status := c.Response().StatusCode()
		if chainErr != nil {
			if e, ok := chainErr.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if userID, ok := c.Locals("userID").(types.SnowflakeID); ok {
			fields = append(fields, zap.String("user_id", userID.String()))
		}
		if chainErr != nil {
			fields = append(fields, zap.Error(chainErr))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= fiber.StatusBadRequest:
			level = zapcore.WarnLevel
		}
		if ce := log.Check(level, "request"); ce != nil {
			ce.Write(fields...)
		}
		return chainErr
	}
}
