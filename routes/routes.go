package routes

import (
	"net/http"

	"quicklearner/handlers"
	"quicklearner/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Email        *handlers.EmailHandler
	User         *handlers.UserHandler
	QuizType     *handlers.QuizTypeHandler
	Question     *handlers.QuestionHandler
	Quiz         *handlers.QuizHandler
	TakeQuiz     *handlers.TakeQuizHandler
	Answer       *handlers.AnswerHandler
	Notification *handlers.NotificationHandler
}

func SetupRoutes(router *gin.Engine, h *Handlers, auth *middleware.AuthMiddleware, apiPrefix string) {
	handlers.RegisterJSONTagNames()

	id := middleware.ObjectIDParams("id")
	api := router.Group(apiPrefix)
	{
		// Public routes
		authPublic := api.Group("/auth")
		{
			authPublic.POST("/signup", h.Auth.SignUp)
			authPublic.POST("/signin", h.Auth.SignIn)
			authPublic.POST("/google-auth", h.Auth.GoogleAuth)
			authPublic.POST("/signup-verify", h.Auth.SignUpVerify)
		}

		email := api.Group("/email")
		{
			email.POST("/signup", h.Email.SignUp)
			email.POST("/forgot-password", h.Email.ForgotPassword)
		}

		// Carries its own reset token
		api.POST("/users/resetpassword", h.User.ResetPassword)

		// Protected routes
		protected := api.Group("")
		protected.Use(auth.RequireAuth())
		{
			protected.GET("/auth/me", h.Auth.Me)

			users := protected.Group("/users")
			{
				users.POST("/changepassword", h.User.ChangePassword)
				users.POST("/changeusername", h.User.ChangeUsername)
				users.DELETE("", h.User.Delete)
			}

			quizTypes := protected.Group("/quizType")
			{
				quizTypes.GET("", h.QuizType.List)
				quizTypes.POST("", h.QuizType.Create)
				quizTypes.GET("/popular", h.QuizType.Popular)
				quizTypes.GET("/:id", id, h.QuizType.Get)
				quizTypes.PUT("/:id", id, h.QuizType.Rename)
				quizTypes.DELETE("/:id", id, h.QuizType.Delete)
			}

			questions := protected.Group("/question")
			{
				questions.POST("", h.Question.Create)
				questions.GET("/:id", id, h.Question.Get)
				questions.PATCH("/:id", id, h.Question.Update)
				questions.DELETE("/:id", id, h.Question.Delete)
			}

			quizzes := protected.Group("/quiz")
			{
				quizzes.GET("", h.Quiz.GetQuizzes)
				quizzes.POST("", h.Quiz.CreateQuiz)
				quizzes.GET("/user", h.Quiz.GetUserQuizzes)
				// id or referral code
				quizzes.GET("/:id", h.Quiz.GetQuizByID)
				quizzes.PATCH("/:id", id, h.Quiz.UpdateQuiz)
				quizzes.DELETE("/:id", id, h.Quiz.DeleteQuiz)
				quizzes.POST("/:id/questions/:questionid", middleware.ObjectIDParams("id", "questionid"), h.Quiz.AddQuestion)
				quizzes.POST("/:id/quiztypes/:quiztypeid", middleware.ObjectIDParams("id", "quiztypeid"), h.Quiz.AddQuizType)
			}

			takeQuizzes := protected.Group("/takeQuiz")
			{
				takeQuizzes.GET("", h.TakeQuiz.List)
				takeQuizzes.GET("/user", h.TakeQuiz.ListMine)
				takeQuizzes.GET("/:id", id, h.TakeQuiz.Get)
				// :id is the quiz being taken
				takeQuizzes.POST("/:id", id, h.TakeQuiz.Create)
				takeQuizzes.DELETE("/:id", id, h.TakeQuiz.Delete)
			}

			answers := protected.Group("/answer")
			{
				answers.POST("", h.Answer.SubmitBatch)
				answers.GET("", h.Answer.List)
				answers.GET("/answer-history", h.Answer.History)
				answers.GET("/users/:userId/questions/:questionId", middleware.ObjectIDParams("userId", "questionId"), h.Answer.ListByUserAndQuestion)
				answers.GET("/:id", id, h.Answer.Get)
				answers.PUT("/:id", id, h.Answer.Update)
				answers.DELETE("/:id", id, h.Answer.Delete)
			}
		}
	}

	// WebSocket endpoint for live notifications; the token comes in the query.
	router.GET("/ws/notifications", h.Notification.Connect)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
