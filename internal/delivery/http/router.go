package http

import (
	"EduHub/internal/delivery/http/controllers"
	"EduHub/internal/delivery/http/controllers/auth"
	"EduHub/internal/delivery/http/controllers/content"
	"EduHub/internal/delivery/http/controllers/course"
	"EduHub/internal/delivery/http/controllers/enrollment"
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/delivery/http/controllers/progress"
	"EduHub/internal/models"
	"EduHub/internal/service"
	"EduHub/pkg/logger"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitRoutes(l logger.Log, allowedOrigins []string, u service.Collection) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}
	config := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	r.Use(cors.New(config))

	statusController := controllers.NewStatusHandler()
	authMiddleware := middleware.NewAuthMiddlewareProvider(l, u.Auth)
	authController := auth.NewAuthHandler(l, u.Auth)
	courseManagement := course.NewManagementHandler(l, u.Course)
	courseQuery := course.NewQueryHandler(l, u.Course)
	contentManagement := content.NewManagementHandler(l, u.Content)
	contentMedia := content.NewMediaHandler(l, u.Content)
	progressController := progress.NewProgressHandler(l, u.Progress)
	enrollmentController := enrollment.NewEnrollmentHandler(l, u.Enrollment)

	v1 := r.Group("/v1", middleware.LoggingMiddleware(l))
	{
		v1.GET("/status", statusController.Status)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authController.Login)
			authGroup.POST("/register", authController.Register)
			authGroup.POST("/refresh", authController.Refresh)
			authGroup.POST("/accept-invite", authController.AcceptInvite)
			authGroup.POST("/password-reset", authController.RequestPasswordReset)
			authGroup.POST("/password-reset/confirm", authController.ResetPassword)
			authGroup.POST("/logout", authMiddleware.AuthMiddleware, authController.Logout)
		}

		authed := v1.Group("", authMiddleware.AuthMiddleware)
		{
			authed.GET("/me", authController.Me)
			authed.GET("/dashboard", progressController.Dashboard)

			courses := authed.Group("/courses")
			{
				courses.GET("", courseQuery.ListCoursePreview)
				courses.GET("/:course_id", courseQuery.CourseByID)
				courses.GET("/:course_id/outline", courseQuery.Outline)
				courses.GET("/:course_id/progress", progressController.CourseProgress)
				courses.GET("/:course_id/path", progressController.CoursePath)
				courses.GET("/:course_id/lessons/:lesson_id", progressController.OpenLesson)
				courses.POST("/:course_id/lessons/:lesson_id/complete", middleware.RequireRoles(models.StudentRole), progressController.MarkComplete)
			}

			admin := authed.Group("/admin", middleware.RequireRoles(models.AdminRole))
			{
				admin.POST("/courses", courseManagement.CreateCourse)
				admin.PUT("/courses/:course_id", courseManagement.UpdateCourse)
				admin.DELETE("/courses/:course_id", courseManagement.DeleteCourse)
				admin.POST("/courses/:course_id/sections", contentManagement.CreateChild(models.KindCourse))
				admin.PUT("/courses/:course_id/order", contentManagement.Reorder(models.KindCourse))
				admin.GET("/courses/:course_id/enrollments", enrollmentController.CourseEnrollments)
				admin.PUT("/courses/:course_id/students/:student_id", enrollmentController.Assign)
				admin.DELETE("/courses/:course_id/students/:student_id", enrollmentController.Unassign)

				admin.PATCH("/sections/:section_id", contentManagement.UpdateNode(models.KindSection))
				admin.DELETE("/sections/:section_id", contentManagement.DeleteNode(models.KindSection))
				admin.PUT("/sections/:section_id/order", contentManagement.Reorder(models.KindSection))
				admin.POST("/sections/:section_id/chapters", contentManagement.CreateChild(models.KindSection))
				admin.POST("/sections/:section_id/resources/link", contentMedia.AddLinkResource)
				admin.POST("/sections/:section_id/resources/file", contentMedia.AddFileResource)
				admin.DELETE("/resources/:resource_id", contentMedia.DeleteResource)

				admin.PATCH("/chapters/:chapter_id", contentManagement.UpdateNode(models.KindChapter))
				admin.DELETE("/chapters/:chapter_id", contentManagement.DeleteNode(models.KindChapter))
				admin.PUT("/chapters/:chapter_id/order", contentManagement.Reorder(models.KindChapter))
				admin.POST("/chapters/:chapter_id/modules", contentManagement.CreateChild(models.KindChapter))

				admin.PATCH("/modules/:module_id", contentManagement.UpdateNode(models.KindModule))
				admin.DELETE("/modules/:module_id", contentManagement.DeleteNode(models.KindModule))
				admin.PUT("/modules/:module_id/order", contentManagement.Reorder(models.KindModule))
				admin.POST("/modules/:module_id/lessons", contentManagement.CreateLesson)

				admin.PUT("/lessons/:lesson_id", contentManagement.UpdateLesson)
				admin.DELETE("/lessons/:lesson_id", contentManagement.DeleteNode(models.KindLesson))
				admin.PUT("/lessons/:lesson_id/state", contentManagement.SetPublicationState)
				admin.POST("/lessons/:lesson_id/video", contentMedia.UploadLessonVideo)

				admin.GET("/students", enrollmentController.ListStudents)
				admin.POST("/students/invite", enrollmentController.Invite)
				admin.POST("/students/password-reset", enrollmentController.ResetStudentPassword)
				admin.PATCH("/students/:student_id", enrollmentController.UpdateStudent)
				admin.GET("/students/:student_id/enrollments", enrollmentController.StudentEnrollments)
			}
		}
	}
	return r
}
