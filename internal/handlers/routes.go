// internal/handlers/routes.go
package handlers

import (
	"genmon-backend/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes вешает все эндпоинты API на роутер. db может быть nil:
// тогда маршруты, которым нужна база, отвечают 503.
func RegisterRoutes(r gin.IRouter, db *database.DB, log logrus.FieldLogger, dev bool) {
	healthHandler := NewHealthHandler(db, log)
	r.GET("/health", healthHandler.Check)

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Check)

		auth := api.Group("/auth")
		{
			authHandler := NewAuthHandler(db, log, dev)
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/admin/reset-password", authHandler.ResetPassword)
		}

		saves := api.Group("/saves")
		{
			saveHandler := NewSaveHandler(db, log, dev)
			saves.GET("/:username/:slot", saveHandler.GetSave)
			saves.POST("/:username/:slot", saveHandler.PostSave)
		}

		monsters := api.Group("/monsters")
		{
			monsterHandler := NewMonsterHandler(db, log, dev)
			monsters.GET("/:username", monsterHandler.ListMonsters)
			monsters.POST("/:username", monsterHandler.SaveMonster)
		}
	}
}
