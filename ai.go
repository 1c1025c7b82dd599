package quill

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// enrichHandler decodes Req, runs one gateway task and writes its result.
func enrichHandler[Req, Res any](task func(context.Context, Req) (Res, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := c.Bind(&req); err != nil {
			return apiError(c, badRequest("invalid request body"))
		}
		res, err := task(c.Request().Context(), req)
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}
