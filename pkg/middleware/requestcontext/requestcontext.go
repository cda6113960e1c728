package requestcontext

import (
	"context"

	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

type Option func(ctx context.Context, c *fiber.Ctx) context.Context

// New copies request scoped values into the user context, and into its logger.
func New(opts ...Option) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for _, opt := range opts {
			ctx = opt(ctx, c)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

type (
	requestIdKey struct{}
	clientIPKey  struct{}
)

// GetRequestId returns an empty string if the request id middleware is not installed.
func GetRequestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey{}).(string)
	return id
}

func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithRequestId() Option {
	return func(ctx context.Context, c *fiber.Ctx) context.Context {
		requestId, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		if !ok || requestId == "" {
			requestId = c.Get(requestid.ConfigDefault.Header, fiberutils.UUID())
			c.Set(requestid.ConfigDefault.Header, requestId)
			c.Locals(requestid.ConfigDefault.ContextKey, requestId)
		}
		ctx = context.WithValue(ctx, requestIdKey{}, requestId)
		return logger.WithContext(ctx, "requestId", requestId)
	}
}

// WithClientIP trusts the first X-Forwarded-For entry when behindProxy is set.
func WithClientIP(behindProxy bool) Option {
	return func(ctx context.Context, c *fiber.Ctx) context.Context {
		ip := c.IP()
		if ips := c.IPs(); behindProxy && len(ips) > 0 {
			ip = ips[0]
		}
		return context.WithValue(ctx, clientIPKey{}, ip)
	}
}
