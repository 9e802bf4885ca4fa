package routes

import (
	"net/http"

	"github.com/FidelisKagashe26/MeetMe/internal/handler"
	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	chatHandler *handler.ChatHandler,
	notificationHandler *handler.NotificationHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Chat WebSocket. Auth happens inside the handler: the token may
	// arrive as a query parameter, which the header-only middleware
	// can't see, and rejections need socket close codes.
	router.GET("/ws/chat/:conversation_id", wsHandler.Connect)

	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager))

	conversations := api.Group("/conversations")
	conversations.POST("", chatHandler.CreateConversation)
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.GET("/:id/messages", chatHandler.ListMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.POST("/:id/seen", chatHandler.MarkAllSeen)
	conversations.POST("/:id/typing", chatHandler.SetTyping)

	messages := api.Group("/messages")
	messages.POST("/:id/read", chatHandler.MarkMessageRead)

	notifications := api.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
}
