package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/constants"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyCurrentUser, user)
		c.Next()
	}
}

func ok(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func TestRequireModule(t *testing.T) {
	tests := []struct {
		role access.Role
		want int
	}{
		{access.RoleAdmin, http.StatusNoContent},
		{access.RoleManager, http.StatusNoContent},
		{access.RoleAnnotator, http.StatusForbidden},
		{access.RoleGuest, http.StatusForbidden},
		{access.Role("intern"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			r := gin.New()
			r.GET("/members", withUser(&models.User{ID: 1, Role: tt.role}), RequireModule(access.ModuleUserManagement), ok)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireModule_Unauthenticated(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireModule(access.ModuleDashboard), ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAnyModule(t *testing.T) {
	r := gin.New()
	r.GET("/x", withUser(&models.User{ID: 1, Role: access.RoleQA}),
		RequireAnyModule(access.ModuleUserManagement, access.ModuleReview), ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/x", rl.Limit(), ok)

	call := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call())
	assert.Equal(t, http.StatusNoContent, call())
	assert.Equal(t, http.StatusTooManyRequests, call())

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, call())
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	first, second := &models.User{ID: 1}, &models.User{ID: 2}
	r := gin.New()
	r.GET("/a", withUser(first), rl.Limit(), ok)
	r.GET("/b", withUser(second), rl.Limit(), ok)

	for _, path := range []string{"/a", "/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	authService := services.NewAuthService(repository.NewUserRepository(db), repository.NewOrganizationRepository(db), 14, nil)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/login/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		session.Set(constants.ContextKeyUserID, id)
		require.NoError(t, session.Save())
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", RequireAuth(authService), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Email)
	})
	r.GET("/work", RequireAuth(authService), RequireActive(authService), ok)
	return r, db
}

func TestRequireAuth(t *testing.T) {
	r, db := setupAuthRouter(t)

	org := models.Organization{Name: "Acme", InviteCode: "ACME"}
	require.NoError(t, db.Create(&org).Error)
	approved := models.User{OrganizationID: org.ID, Email: "a@acme.test", Name: "A", PasswordHash: "x", Role: access.RoleAnnotator, ApprovalStatus: models.ApprovalApproved}
	pending := models.User{OrganizationID: org.ID, Email: "p@acme.test", Name: "P", PasswordHash: "x", Role: access.RoleAnnotator, ApprovalStatus: models.ApprovalPending}
	require.NoError(t, db.Create(&approved).Error)
	require.NoError(t, db.Create(&pending).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login := func(id uint64) []*http.Cookie {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+strconv.FormatUint(id, 10), nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		return w.Result().Cookies()
	}
	get := func(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	cookies := login(approved.ID)
	w = get("/me", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@acme.test", w.Body.String())
	assert.Equal(t, http.StatusNoContent, get("/work", cookies).Code)

	cookies = login(pending.ID)
	assert.Equal(t, http.StatusOK, get("/me", cookies).Code)
	w = get("/work", cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "APPROVAL_PENDING")

	cookies = login(9999)
	assert.Equal(t, http.StatusUnauthorized, get("/me", cookies).Code)
}
