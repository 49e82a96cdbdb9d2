package routes

import (
	"net/http"

	"bookit/admin"
	"bookit/auth"
	"bookit/booking"
	"bookit/catalog"
	"bookit/media"
	"bookit/middleware"
	"bookit/profile"
	"bookit/ratelim"

	"github.com/julienschmidt/httprouter"
)

// Deps carries the handlers and guards the routes are built from.
type Deps struct {
	MW          *middleware.Middleware
	RateLimiter *ratelim.RateLimiter
	Auth        *auth.Handler
	Catalog     *catalog.Handler
	Bookings    *booking.Handler
	Hub         *booking.Hub
	Profiles    *profile.Handler
	Admin       *admin.Handler
	Images      *media.ImageStore
	MediaURL    string
}

func Register(router *httprouter.Router, d Deps) {
	AddUtilityRoutes(router, d)
	AddAuthRoutes(router, d)
	AddServiceRoutes(router, d)
	AddCategoryRoutes(router, d)
	AddBookingRoutes(router, d)
	AddProfileRoutes(router, d)
	AddAdminRoutes(router, d)
	AddMediaRoutes(router, d)
}

func AddUtilityRoutes(router *httprouter.Router, d Deps) {
	router.GET("/health", admin.Health)
	router.GET("/api/status/", admin.Status)
	router.GET("/api/whoami/", d.MW.OptionalAuth(d.Admin.WhoAmI))
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/register/", d.RateLimiter.Limit(d.Auth.Register))
	router.POST("/api/token/", d.RateLimiter.Limit(d.Auth.Token))
	router.POST("/api/token/refresh/", d.RateLimiter.Limit(d.Auth.Refresh))
}

func AddServiceRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/services/", d.Catalog.ListServices)
	router.POST("/api/services/", d.MW.RequireAdmin(d.Catalog.CreateService))
	router.GET("/api/services/:id/", d.Catalog.GetService)
	router.PUT("/api/services/:id/", d.MW.RequireAdmin(d.Catalog.UpdateService))
	router.PATCH("/api/services/:id/", d.MW.RequireAdmin(d.Catalog.UpdateService))
	router.DELETE("/api/services/:id/", d.MW.RequireAdmin(d.Catalog.DeleteService))
}

func AddCategoryRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/categories/", d.Catalog.ListCategories)
	router.POST("/api/categories/", d.MW.RequireAdmin(d.Catalog.CreateCategory))
}

func AddBookingRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/bookings/", d.MW.Authenticate(d.Bookings.List))
	router.POST("/api/bookings/", d.RateLimiter.Limit(d.MW.Authenticate(d.Bookings.Create)))
	router.PATCH("/api/bookings/:id/", d.MW.Authenticate(d.Bookings.Update))
	router.GET("/api/bookings/:id/receipt/", d.MW.Authenticate(d.Bookings.Receipt))
	router.GET("/api/ws/bookings/", d.MW.Authenticate(d.Hub.HandleWS))
}

func AddProfileRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/me/", d.MW.Authenticate(d.Profiles.GetMe))
	router.PUT("/api/me/", d.MW.Authenticate(d.Profiles.UpdateMe))
	router.GET("/api/me/stats/", d.MW.Authenticate(d.Bookings.Stats))
}

func AddAdminRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/admin/bookings/", d.MW.RequireAdmin(d.Bookings.ListAll))
	router.GET("/api/admin/users/", d.MW.RequireAdmin(d.Admin.ListUsers))
	router.POST("/api/admin/users/:id/role/", d.MW.RequireAdmin(d.Admin.SetRole))
}

func AddMediaRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/uploads/service-image/", d.MW.RequireAdmin(d.Images.UploadServiceImage))
	router.ServeFiles(d.MediaURL+"*filepath", http.Dir(d.Images.Root()))
}
