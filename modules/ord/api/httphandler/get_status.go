package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) GetStatus(ctx *fiber.Ctx) error {
	return errors.WithStack(ctx.SendString("OK"))
}
