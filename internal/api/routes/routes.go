package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/api/handlers"
	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/database"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

// Register wires up API routes and performs automatic migrations. Metrics
// are served on /metrics when registry is not nil.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, registry *prometheus.Registry) error {
	if err := database.Migrate(db); err != nil {
		return err
	}

	router.GET("/api/v1/health", handlers.HealthHandler(db))
	if registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	}

	activityService := services.NewActivityService(db, cfg.ActivityPageSize)
	notificationService := services.NewNotificationService(db)
	authService := services.NewAuthService(db, cfg, activityService)
	permissionService := services.NewPermissionService(db, activityService)
	directoryService := services.NewDirectoryService(db, activityService)
	assetService := services.NewAssetService(db, activityService)
	incidentService := services.NewIncidentService(db, activityService, notificationService)
	documentService := services.NewDocumentService(db, activityService, notificationService)
	dictionaryService := services.NewDictionaryService(db, activityService)
	soaService := services.NewSoAService(db, activityService)
	deletionService := services.NewDeletionService(db, activityService)

	gate := middleware.NewGate(cfg.LandingPath, cfg.LoginPath)
	deletion := handlers.NewDeletionHandler(deletionService)

	// Programmatic lookups answer 401/403 instead of redirecting.
	lookups := router.Group("/api/v1/soa/api")
	lookups.Use(middleware.AuthMiddleware(authService, permissionService), gate.AnyOrRaise(models.SoAViewPermissions...))
	{
		soaHandler := handlers.NewSoAHandler(soaService, dictionaryService)
		lookups.GET("/objectives/:domain_id", soaHandler.Objectives)
		lookups.GET("/requirements/:objective_id", soaHandler.Requirements)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(authService, permissionService))

	// Auth
	authHandler := handlers.NewAuthHandler(authService, cfg.IsProduction(), cfg.LandingPath)
	api.GET("/auth/login", authHandler.LoginPage)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", gate.LoginRequired(), authHandler.Logout)
	api.GET("/auth/me", gate.LoginRequired(), authHandler.Me)
	api.POST("/auth/change-password", gate.LoginRequired(), authHandler.ChangePassword)

	dashboardHandler := handlers.NewDashboardHandler(assetService, incidentService, documentService, soaService)
	api.GET("/dashboard", gate.LoginRequired(), dashboardHandler.Show)

	registerDirectory(api, gate, deletion, directoryService, permissionService)
	registerAssets(api, gate, deletion, assetService)
	registerIncidents(api, gate, deletion, incidentService)
	registerDocuments(api, gate, deletion, documentService)
	registerDictionary(api, gate, deletion, dictionaryService)
	registerSoA(api, gate, deletion, soaService, dictionaryService)

	// Activity log
	activityHandler := handlers.NewActivityHandler(activityService)
	activity := api.Group("/activity-log", gate.StaffOr(models.PermActivityLogView))
	{
		activity.GET("", activityHandler.List)
		activity.GET("/export", activityHandler.Export)
		activity.GET("/object/:category/:id", activityHandler.ForObject)
		activity.GET("/:id", activityHandler.Get)
	}

	// Notifications
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notifications := api.Group("/notifications", gate.LoginRequired())
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkAsRead)
		notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
	}

	providerHandler := handlers.NewNotificationProviderHandler(notificationService)
	providers := api.Group("/notifications/providers", gate.Staff())
	{
		providers.GET("", providerHandler.List)
		providers.POST("", providerHandler.Create)
		providers.PUT("/:id", providerHandler.Update)
		providers.DELETE("/:id", providerHandler.Delete)
		providers.POST("/:id/test", providerHandler.Test)
	}

	return nil
}

func registerDirectory(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, directory *services.DirectoryService, permissions *services.PermissionService) {
	h := handlers.NewDirectoryHandler(directory, permissions)
	staff := api.Group("", gate.Staff())

	staff.GET("/organization", h.Organization)
	staff.PUT("/organization", h.UpdateOrganization)

	staff.GET("/departments", h.ListDepartments)
	staff.POST("/departments", h.CreateDepartment)
	staff.GET("/departments/:id", h.GetDepartment)
	staff.PUT("/departments/:id", h.UpdateDepartment)
	staff.GET("/departments/:id/delete-check", deletion.Check(services.EntityDepartment))
	staff.DELETE("/departments/:id", deletion.Delete(services.EntityDepartment))
	staff.POST("/departments/:id/groups", h.AssignDepartmentGroup())
	staff.DELETE("/departments/:id/groups/:group_id", h.UnassignDepartmentGroup())

	staff.GET("/positions", h.ListPositions)
	staff.POST("/positions", h.CreatePosition)
	staff.GET("/positions/:id", h.GetPosition)
	staff.PUT("/positions/:id", h.UpdatePosition)
	staff.GET("/positions/:id/delete-check", deletion.Check(services.EntityPosition))
	staff.DELETE("/positions/:id", deletion.Delete(services.EntityPosition))
	staff.POST("/positions/:id/groups", h.AssignPositionGroup())
	staff.DELETE("/positions/:id/groups/:group_id", h.UnassignPositionGroup())

	staff.GET("/employees", h.ListEmployees)
	staff.POST("/employees", h.CreateEmployee)
	staff.GET("/employees/:id", h.GetEmployee)
	staff.PUT("/employees/:id", h.UpdateEmployee)
	staff.PUT("/employees/:id/positions", h.SetPositions)
	staff.GET("/employees/:id/delete-check", deletion.Check(services.EntityEmployee))
	staff.DELETE("/employees/:id", deletion.Delete(services.EntityEmployee))
	staff.POST("/employees/:id/groups", h.AssignEmployeeGroup())
	staff.DELETE("/employees/:id/groups/:group_id", h.UnassignEmployeeGroup())

	p := handlers.NewPermissionHandler(permissions)
	staff.GET("/permissions", p.List)
	staff.POST("/permissions", p.Create)
	staff.POST("/permissions/seed", p.Seed)
	staff.GET("/permissions/:id", p.Get)
	staff.PUT("/permissions/:id", p.Update)
	staff.GET("/permissions/:id/delete-check", deletion.Check(services.EntityPermission))
	staff.DELETE("/permissions/:id", deletion.Delete(services.EntityPermission))

	staff.GET("/permission-groups", p.ListGroups)
	staff.POST("/permission-groups", p.CreateGroup)
	staff.GET("/permission-groups/:id", p.GetGroup)
	staff.PUT("/permission-groups/:id", p.UpdateGroup)
	staff.GET("/permission-groups/:id/delete-check", deletion.Check(services.EntityPermissionGroup))
	staff.DELETE("/permission-groups/:id", deletion.Delete(services.EntityPermissionGroup))
}

func registerAssets(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, assets *services.AssetService) {
	h := handlers.NewAssetHandler(assets)
	view := gate.Any(models.AssetViewPermissions...)
	edit := gate.Any(models.AssetEditPermissions...)
	admin := gate.Any(models.PermAssetsAdmin)

	api.GET("/assets", view, h.List)
	api.POST("/assets", edit, h.Create)
	api.GET("/assets/:id", view, h.Get)
	api.PUT("/assets/:id", edit, h.Update)
	api.GET("/assets/:id/delete-check", admin, deletion.Check(services.EntityAsset))
	api.DELETE("/assets/:id", admin, deletion.Delete(services.EntityAsset))

	api.GET("/asset-categories", view, h.ListCategories)
	api.POST("/asset-categories", admin, h.CreateCategory)
	api.GET("/asset-categories/:id", view, h.GetCategory)
	api.PUT("/asset-categories/:id", admin, h.UpdateCategory)
	api.GET("/asset-categories/:id/delete-check", admin, deletion.Check(services.EntityAssetCategory))
	api.DELETE("/asset-categories/:id", admin, deletion.Delete(services.EntityAssetCategory))
}

func registerIncidents(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, incidents *services.IncidentService) {
	h := handlers.NewIncidentHandler(incidents)
	reporter := gate.Any(models.IncidentAnyPermissions...)
	manage := gate.Any(models.IncidentManagePermissions...)
	admin := gate.Any(models.PermIncidentsAdmin)

	api.POST("/incidents", reporter, h.Report)
	api.GET("/incidents/mine", reporter, h.Mine)
	api.GET("/incidents", gate.Any(models.IncidentViewAllPermissions...), h.All)
	api.GET("/incidents/:id", reporter, h.Get)
	api.PUT("/incidents/:id", reporter, h.Update)
	api.POST("/incidents/:id/analysis", manage, h.Analysis)
	api.POST("/incidents/:id/response", manage, h.Response)
	api.POST("/incidents/:id/action", manage, h.Action)
	api.POST("/incidents/:id/close", manage, h.Close)
	api.POST("/incidents/:id/advance", manage, h.Advance)
	api.POST("/incidents/:id/assign", admin, h.Assign)
	api.POST("/incidents/:id/notes", reporter, h.AddNote)
	api.GET("/incidents/:id/delete-check", admin, deletion.Check(services.EntityIncident))
	api.DELETE("/incidents/:id", admin, deletion.Delete(services.EntityIncident))
}

func registerDocuments(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, documents *services.DocumentService) {
	h := handlers.NewDocumentHandler(documents)
	view := gate.Any(models.DocumentViewPermissions...)
	edit := gate.Any(models.DocumentEditPermissions...)
	owner := gate.Any(models.PermDocumentsAdmin, models.PermDocumentsOwner)

	api.GET("/documents", view, h.List)
	api.POST("/documents", edit, h.Create)
	api.GET("/documents/shared-with-me", gate.LoginRequired(), h.SharedWithMe)
	api.GET("/documents/:id", view, h.Get)
	api.PUT("/documents/:id", edit, h.Update)
	api.GET("/documents/:id/transitions", view, h.Transitions)
	api.POST("/documents/:id/transition", gate.Any(models.DocumentWorkflowPermissions...), h.Transition)
	api.POST("/documents/:id/versions", edit, h.AddVersion)
	api.POST("/documents/:id/versions/:version_id/current", edit, h.SetCurrentVersion)
	api.POST("/documents/:id/access", owner, h.GrantAccess)
	api.DELETE("/documents/:id/access/:group_id", owner, h.RevokeAccess)
	api.POST("/documents/:id/acknowledge", gate.LoginRequired(), h.Acknowledge)
	api.POST("/documents/:id/iso-mappings", edit, h.LinkISO)
	api.DELETE("/documents/:id/iso-mappings/:mapping_id", edit, h.UnlinkISO)
	api.GET("/documents/:id/delete-check", owner, deletion.Check(services.EntityDocument))
	api.DELETE("/documents/:id", owner, deletion.Delete(services.EntityDocument))
}

func registerDictionary(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, dictionary *services.DictionaryService) {
	h := handlers.NewDictionaryHandler(dictionary)
	dict := api.Group("/dictionary", gate.Dictionary())

	dict.GET("/tree", h.Tree)
	dict.GET("/matrix", h.Matrix)
	dict.GET("/stats", h.Stats)

	dict.GET("/domains", h.ListDomains)
	dict.POST("/domains", h.CreateDomain)
	dict.GET("/domains/:id", h.GetDomain)
	dict.PUT("/domains/:id", h.UpdateDomain)
	dict.GET("/domains/:id/delete-check", deletion.Check(services.EntityISODomain))
	dict.DELETE("/domains/:id", deletion.Delete(services.EntityISODomain))

	dict.GET("/objectives", h.ListObjectives)
	dict.POST("/objectives", h.CreateObjective)
	dict.GET("/objectives/:id", h.GetObjective)
	dict.PUT("/objectives/:id", h.UpdateObjective)
	dict.GET("/objectives/:id/delete-check", deletion.Check(services.EntityISOObjective))
	dict.DELETE("/objectives/:id", deletion.Delete(services.EntityISOObjective))

	dict.GET("/requirements", h.ListRequirements)
	dict.POST("/requirements", h.CreateRequirement)
	dict.GET("/requirements/:id", h.GetRequirement)
	dict.PUT("/requirements/:id", h.UpdateRequirement)
	dict.GET("/requirements/:id/delete-check", deletion.Check(services.EntityISORequirement))
	dict.DELETE("/requirements/:id", deletion.Delete(services.EntityISORequirement))
}

func registerSoA(api *gin.RouterGroup, gate *middleware.Gate, deletion *handlers.DeletionHandler, soa *services.SoAService, dictionary *services.DictionaryService) {
	h := handlers.NewSoAHandler(soa, dictionary)
	view := gate.Any(models.SoAViewPermissions...)
	edit := gate.Any(models.SoAEditPermissions...)
	owner := gate.Any(models.PermComplianceAdmin, models.PermComplianceOwner)

	api.GET("/soa", view, h.List)
	api.POST("/soa", edit, h.Create)
	api.GET("/soa/:id", view, h.Get)
	api.PUT("/soa/:id", edit, h.Update)
	api.POST("/soa/:id/status", edit, h.SetStatus)
	api.GET("/soa/:id/export", view, h.Export)
	api.POST("/soa/:id/entries", edit, h.AddEntry)
	api.PUT("/soa/:id/entries/:entry_id", edit, h.UpdateEntry)
	api.DELETE("/soa/:id/entries/:entry_id", edit, h.RemoveEntry)
	api.GET("/soa/:id/delete-check", owner, deletion.Check(services.EntitySoADeclaration))
	api.DELETE("/soa/:id", owner, deletion.Delete(services.EntitySoADeclaration))
}
