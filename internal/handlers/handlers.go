package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/middleware"
	"github.com/yukikurage/annonest-api/internal/services"
)

// currentActor returns the authenticated actor or writes a 401.
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Actor{}, false
	}
	return actor, true
}

// parseIDParam reads a positive numeric path parameter or writes a 400.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.Respond(c, apierrors.Validation("Invalid "+name))
		return 0, false
	}
	return id, true
}

// optionalUintQuery reads an optional numeric query parameter.
func optionalUintQuery(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("Invalid "+name))
		return nil, false
	}
	return &v, true
}

// bindJSON binds the request body or writes a 400 with the binding error.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.Respond(c, apierrors.Validation("Invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}
