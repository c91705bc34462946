package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/observability"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// sessionPrefixes serve identity-specific content that shared caches must not keep.
var sessionPrefixes = []string{"/auth", "/admin", "/dashboard", "/mitra"}

// RegisterMiddlewares attaches the global middleware chain. The request logger
// wraps error rendering so it records the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(noStoreMiddleware(sessionPrefixes))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// noStoreMiddleware marks responses under prefixes as uncacheable, redirects
// and errors included.
func noStoreMiddleware(prefixes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, prefix := range prefixes {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				c.Set(fiber.HeaderCacheControl, "no-store")
				c.Vary(fiber.HeaderAuthorization, fiber.HeaderCookie)
				break
			}
		}
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("path", c.Path()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				renderError(c, apperrors.ToDomainError(err), logger, metrics)
				err = nil
			}
		}()
		return c.Next()
	}
}

// renderError writes {"error":{"code","message","details"}}. Guard denials never
// reach here: they are redirects.
func renderError(c *fiber.Ctx, domainErr *apperrors.DomainError, logger *zap.Logger, metrics *observability.Metrics) {
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
	}
	_ = c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}
