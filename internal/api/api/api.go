package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"eventadmin/cmd/middleware"
	"eventadmin/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.PATCH("/events/:id", r.Service.UpdateEvent)
	apiGroup.PUT("/events/:id/typeform-config", r.Service.UpdateTypeformConfig)
	apiGroup.POST("/registrations", r.Service.Register)
	apiGroup.GET("/events/:id", r.Service.GetInfo)
	apiGroup.GET("/events", r.Service.GetAllEvents)

	app.GET("/admin", func(c *ginext.Context) {
		c.File("./frontend/admin.html")
	})
	app.Static("/frontend", "./frontend")

	return app
}
