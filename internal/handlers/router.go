package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/constants"
	"github.com/yukikurage/annonest-api/internal/logging"
	"github.com/yukikurage/annonest-api/internal/middleware"
	"github.com/yukikurage/annonest-api/internal/services"
	"gorm.io/gorm"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth          *services.AuthService
	Organizations *services.OrganizationService
	Projects      *services.ProjectService
	Tasks         *services.TaskService
	WorkItems     *services.WorkItemService
	Locks         *services.LockService
	Entities      *services.EntityService
	Relationships *services.RelationshipService
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Services     Services
	Logger       zerolog.Logger
	SessionStore sessions.Store
	// RateLimiter may be nil.
	RateLimiter *middleware.RateLimiter
	// DB is pinged by /health; nil skips the check.
	DB *gorm.DB
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(opts RouterOptions) *gin.Engine {
	svc := opts.Services

	r := gin.New()
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(middleware.Recovery())
	r.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Limit()
	}

	authHandler := NewAuthHandler(svc.Auth)
	orgHandler := NewOrganizationHandler(svc.Organizations)
	projectHandler := NewProjectHandler(svc.Projects)
	taskHandler := NewTaskHandler(svc.Tasks)
	itemHandler := NewWorkItemHandler(svc.WorkItems)
	entityHandler := NewEntityHandler(svc.Entities, svc.Locks)
	relHandler := NewRelationshipHandler(svc.Relationships)

	r.GET("/health", NewHealthHandler(opts.DB).Health)

	requireAuth := middleware.RequireAuth(svc.Auth)
	module := middleware.RequireModule

	api := r.Group("/api")
	{
		// Auth routes (public, plus /me for pending users)
		auth := api.Group("/auth")
		auth.Use(limit)
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		api.GET("/me/modules", requireAuth, func(c *gin.Context) {
			user, _ := middleware.CurrentUser(c)
			c.JSON(http.StatusOK, gin.H{"role": user.Role, "modules": access.ModuleAccess(user.Role)})
		})

		// Everything below needs an approved account with an unexpired trial
		protected := api.Group("")
		protected.Use(requireAuth, middleware.RequireActive(svc.Auth), limit)

		org := protected.Group("/organization")
		{
			org.GET("", orgHandler.GetOrganization)
			org.PUT("", module(access.ModuleOrgSettings), orgHandler.UpdateOrganization)
			org.POST("/invite-code", module(access.ModuleOrgSettings), orgHandler.RegenerateInviteCode)

			members := org.Group("/members", module(access.ModuleUserManagement))
			members.GET("", orgHandler.ListMembers)
			members.GET("/roles", orgHandler.ListAssignableRoles)
			members.PUT("/:user_id/approval", orgHandler.SetApproval)
			members.PUT("/:user_id/role", orgHandler.ChangeRole)
			members.PUT("/:user_id/trial", orgHandler.SetTrialEnd)
			members.DELETE("/:user_id", orgHandler.RemoveMember)
		}

		annotationProjects := protected.Group("/annotation-projects",
			middleware.RequireAnyModule(access.ModuleAnnotationProjects, access.ModuleAnnotationTasks))
		{
			annotationProjects.GET("", projectHandler.ListAnnotationProjects)
			annotationProjects.POST("", module(access.ModuleAnnotationProjects), projectHandler.CreateAnnotationProject)
			annotationProjects.GET("/:id", projectHandler.GetAnnotationProject)
		}

		tasks := protected.Group("/tasks",
			middleware.RequireAnyModule(access.ModuleAnnotationTasks, access.ModuleNewsTagging, access.ModuleReview))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", module(access.ModuleAnnotationProjects), taskHandler.CreateTask)
			tasks.POST("/upload", module(access.ModuleAnnotationProjects), taskHandler.UploadTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/claim", taskHandler.ClaimTask)
			tasks.POST("/:id/start", taskHandler.StartTask)
			tasks.PUT("/:id/metadata", taskHandler.SaveTask)
			tasks.POST("/:id/submit", taskHandler.SubmitTask)
			tasks.POST("/:id/approve", module(access.ModuleReview), taskHandler.ApproveTask)
			tasks.POST("/:id/reject", module(access.ModuleReview), taskHandler.RejectTask)
			tasks.POST("/:id/assign", taskHandler.AssignTask)
			tasks.POST("/:id/suggest-tags", module(access.ModuleNewsTagging), taskHandler.SuggestTags)
		}

		entitiesProjects := protected.Group("/entities-projects", module(access.ModuleDataNestProjects))
		{
			entitiesProjects.GET("", projectHandler.ListEntitiesProjects)
			entitiesProjects.POST("", projectHandler.CreateEntitiesProject)
			entitiesProjects.GET("/:id", projectHandler.GetEntitiesProject)
		}

		items := protected.Group("/work-items", module(access.ModuleDataNestProjects))
		{
			items.GET("", itemHandler.ListItems)
			items.POST("", itemHandler.AddItems)
			items.GET("/:id", itemHandler.GetItem)
			items.POST("/:id/claim", itemHandler.ClaimItem)
			items.POST("/:id/transition", itemHandler.TransitionItem)
			items.POST("/:id/assign", itemHandler.AssignItem)
			items.PUT("/:id/notes", itemHandler.UpdateNotes)
		}

		entities := protected.Group("/entities/:type", module(access.ModuleDataNestEntities))
		{
			entities.GET("", entityHandler.ListEntities)
			entities.POST("", entityHandler.CreateEntity)
			entities.GET("/:id", entityHandler.GetEntity)
			entities.PUT("/:id", entityHandler.UpdateEntity)
			entities.DELETE("/:id", entityHandler.DeleteEntity)
			entities.GET("/:id/lock", entityHandler.GetLock)
			entities.POST("/:id/lock", entityHandler.AcquireLock)
			entities.DELETE("/:id/lock", entityHandler.ReleaseLock)
		}

		rels := protected.Group("/relationships", module(access.ModuleRelationships))
		{
			rels.GET("", relHandler.ListRelationships)
			rels.POST("", relHandler.CreateRelationship)
			rels.DELETE("/:id", relHandler.DeleteRelationship)
		}
	}

	return r
}
