package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/krishirakshak/agri-advisor-backend/utils"
)

// ErrorHandler is the app-wide Fiber error handler; anything a handler did
// not map itself becomes a JSON error payload.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.Printf("unhandled error: %v", err)
	}

	return utils.ErrorResponse(c, code, message)
}
