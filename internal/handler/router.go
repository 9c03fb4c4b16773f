package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/middleware"
	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	"github.com/minhvh/teacher-hub-api/internal/service"
)

// Router bundles every handler plus the middleware dependencies and knows how
// to mount the API route tree.
type Router struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Courses   *CourseHandler
	Files     *CourseFileHandler
	Schedules *WorkScheduleHandler
	Leaves    *LeaveRequestHandler
	Messages  *MessageHandler
	Profiles  *ProfileHandler
	Dashboard *DashboardHandler
	Sync      *SyncHandler

	AuthService *service.AuthService
	AuditRepo   *repository.UserRepository
}

// Register mounts all API routes under the given prefix.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	authn := middleware.JWT(rt.AuthService)
	adminOnly := middleware.RBAC(string(models.RoleAdmin))
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf)

	auth := api.Group("/auth")
	{
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/logout", rt.Auth.Logout)
		auth.GET("/me", authn, rt.Auth.Me)
		auth.POST("/change-password", authn, rt.Auth.ChangePassword)
	}

	users := api.Group("/users", authn)
	{
		users.GET("", adminOnly, rt.Users.List)
		users.GET("/teachers", rt.Users.Teachers)
		users.GET("/:id", adminOrSelf, rt.Users.Get)
		users.POST("", adminOnly, rt.audit("create", "user"), rt.Users.Create)
		users.PUT("/:id", adminOnly, rt.audit("update", "user"), rt.Users.Update)
		users.DELETE("/:id", adminOnly, rt.audit("delete", "user"), rt.Users.Delete)
		users.PATCH("/:id/enabled", adminOnly, rt.audit("set_enabled", "user"), rt.Users.SetEnabled)
	}

	courses := api.Group("/courses", authn)
	{
		courses.GET("", rt.Courses.List)
		courses.GET("/mine", rt.Courses.MyCourses)
		courses.GET("/:id", rt.Courses.Get)
		courses.POST("", adminOnly, rt.audit("create", "course"), rt.Courses.Create)
		courses.PUT("/:id", adminOnly, rt.audit("update", "course"), rt.Courses.Update)
		courses.DELETE("/:id", adminOnly, rt.audit("delete", "course"), rt.Courses.Delete)

		courses.GET("/:id/assignments", rt.Courses.ListAssignments)
		courses.POST("/:id/assignments", adminOnly, rt.audit("assign", "course"), rt.Courses.AssignTeacher)

		courses.GET("/:id/classes", rt.Courses.ListClasses)
		courses.POST("/:id/classes", rt.audit("create", "class"), rt.Courses.CreateClass)

		courses.GET("/:id/files", rt.Files.List)
		courses.POST("/:id/files", rt.Files.Upload)
	}

	api.DELETE("/assignments/:id", authn, adminOnly, rt.audit("remove", "assignment"), rt.Courses.RemoveAssignment)

	classes := api.Group("/classes", authn)
	{
		classes.GET("/mine", rt.Courses.MyClasses)
		classes.PUT("/:id", rt.audit("update", "class"), rt.Courses.UpdateClass)
		classes.DELETE("/:id", rt.audit("delete", "class"), rt.Courses.DeleteClass)
	}

	files := api.Group("/files", authn)
	{
		files.GET("/:id", rt.Files.Download)
		files.GET("/:id/view", rt.Files.View)
		files.DELETE("/:id", rt.Files.Delete)
	}

	schedules := api.Group("/schedules", authn)
	{
		schedules.GET("", rt.Schedules.List)
		schedules.GET("/weekly", rt.Schedules.WeeklyReport)
		schedules.GET("/summary", rt.Schedules.Summary)
		schedules.GET("/export", rt.Schedules.Export)
		schedules.GET("/:id", rt.Schedules.Get)
		schedules.GET("/:id/children", rt.Schedules.Children)
		schedules.POST("", adminOnly, rt.audit("create", "schedule"), rt.Schedules.Create)
		schedules.PUT("/:id", adminOnly, rt.audit("update", "schedule"), rt.Schedules.Update)
		schedules.DELETE("/:id", adminOnly, rt.audit("delete", "schedule"), rt.Schedules.Delete)
		schedules.PUT("/children/:id", adminOnly, rt.audit("update", "schedule"), rt.Schedules.UpdateChild)
		schedules.DELETE("/children/:id", adminOnly, rt.audit("delete", "schedule"), rt.Schedules.DeleteChild)
		schedules.PATCH("/:id/attendance", rt.Schedules.MarkAttendance)
	}

	leaves := api.Group("/leave-requests", authn)
	{
		leaves.GET("", rt.Leaves.List)
		leaves.GET("/stats", adminOnly, rt.Leaves.Stats)
		leaves.GET("/:id", rt.Leaves.Get)
		leaves.POST("", rt.Leaves.Create)
		leaves.PUT("/:id", rt.Leaves.Update)
		leaves.POST("/:id/approve", adminOnly, rt.audit("approve", "leave_request"), rt.Leaves.Approve)
		leaves.POST("/:id/reject", adminOnly, rt.audit("reject", "leave_request"), rt.Leaves.Reject)
		leaves.POST("/:id/cancel", rt.Leaves.Cancel)
		leaves.DELETE("/:id", rt.Leaves.Delete)
	}

	messages := api.Group("/messages", authn)
	{
		messages.POST("", rt.Messages.Send)
		messages.GET("/inbox", rt.Messages.Inbox)
		messages.GET("/sent", rt.Messages.Sent)
		messages.GET("/broadcasts", rt.Messages.Broadcasts)
		messages.GET("/unread-count", rt.Messages.UnreadCount)
		messages.GET("/:id", rt.Messages.Get)
		messages.PATCH("/:id/read", rt.Messages.MarkRead)
		messages.DELETE("/:id", rt.Messages.Delete)
	}

	profile := api.Group("/profile", authn)
	{
		profile.GET("", rt.Profiles.Me)
		profile.PUT("", rt.Profiles.Update)
		profile.POST("/certifications", rt.Profiles.AddCertification)
		profile.DELETE("/certifications/:id", rt.Profiles.DeleteCertification)
		profile.POST("/certifications/:id/image", rt.Profiles.UploadCertificationImage)
		profile.GET("/certifications/:id/image", rt.Profiles.CertificationImage)
	}

	api.GET("/profiles/:id", authn, adminOnly, rt.Profiles.Get)

	dashboard := api.Group("/dashboard", authn)
	{
		dashboard.GET("", rt.Dashboard.Teacher)
		dashboard.GET("/admin", adminOnly, rt.Dashboard.Admin)
	}

	sync := api.Group("/sync", authn, adminOnly)
	{
		sync.GET("/test", rt.Sync.TestConnection)
		sync.POST("", rt.Sync.TriggerAll)
		sync.POST("/:job", rt.Sync.Trigger)
	}
}

func (rt *Router) audit(action, resource string) gin.HandlerFunc {
	return middleware.Audit(rt.AuditRepo, action, resource)
}
