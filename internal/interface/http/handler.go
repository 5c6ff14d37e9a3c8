package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/response"
	"github.com/oksasatya/pks-portal/pkg/validation"
)

var errInvalidID = apperror.BadRequest("id must be a positive integer")

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func badPayload(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
