package middleware

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/constants"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/services"
)

// RequireAuth checks the session and loads the current user into the context.
// A session pointing at a deleted user is cleared.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := sessionUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := authService.GetUser(userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				session.Clear()
				_ = session.Save()
			}
			apierrors.Respond(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyCurrentUser, user)
		c.Next()
	}
}

// RequireActive rejects users whose account is not approved or whose trial
// has ended. Must run after RequireAuth.
func RequireActive(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if err := authService.CheckAccess(user); err != nil {
			apierrors.Respond(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return sessionUserID(userID)
}

// CurrentUser returns the user loaded by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentActor returns the current user as a service actor.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.ActorFrom(user), true
}

// sessionUserID normalizes the id types the session codecs hand back.
func sessionUserID(v interface{}) (uint64, bool) {
	switch id := v.(type) {
	case uint64:
		return id, id != 0
	case uint:
		return uint64(id), id != 0
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	case float64:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	default:
		return 0, false
	}
}
