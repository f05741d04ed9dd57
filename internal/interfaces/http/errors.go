package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-kardex/internal/application/dto"
	"github.com/jhoicas/inventario-kardex/internal/domain"
)

// writeError traduce errores de dominio a HTTP. Los INTERNAL no exponen el detalle.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case domain.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case domain.KindConflict:
		code := "CONFLICT"
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			code = "INSUFFICIENT_STOCK"
		case errors.Is(err, domain.ErrBusy):
			code = "BUSY"
			c.Set(fiber.HeaderRetryAfter, "1")
		}
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	}
	if errors.Is(err, domain.ErrConsistency) {
		log.Error().Err(err).Str("path", c.Path()).Msg("descuadre entre saldo y ledger")
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INCONSISTENT_BALANCE", Message: err.Error()})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
