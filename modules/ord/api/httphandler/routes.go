package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	router.Get("/status", h.GetStatus)
	router.Get("/content/:id", h.GetContent)

	r := router.Group("/v1")
	r.Get("/blockheight", h.GetBlockHeight)
	r.Get("/blockhash/:height", h.GetBlockHash)
	r.Get("/inscription/:id", h.GetInscription)
	r.Get("/inscriptions", h.GetInscriptions)
	r.Get("/output/:outpoint", h.GetOutput)
	r.Get("/sat/:sat", h.GetSat)
	r.Get("/rune/:id", h.GetRune)
	r.Post("/wallet/balance", h.GetWalletBalance)
	return nil
}
