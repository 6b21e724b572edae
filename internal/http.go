package app

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	. "lynck-space/internal/config"
	"lynck-space/internal/connector"
	"lynck-space/internal/email"
	routes "lynck-space/internal/routes"
	"lynck-space/internal/storage"
	"lynck-space/internal/sync"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")

	// Disable caching
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	// Parse allowed CIDRs
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if os.Getenv("GIN_MODE") != "release" {
		localhostCIDRs := []string{"127.0.0.1/8", "::1/128"}
		allowedCIDRs = append(allowedCIDRs, localhostCIDRs...)
	}

	for _, cidr := range allowedCIDRs {
		_, net, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, net)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			// Should not happen
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func HTTPServer(store storage.Provider) *gin.Engine {
	r := gin.Default()

	if Cfg.AllowedNetworks != "" {
		slog.Debug("Enabling IP access control", "allowed_networks", Cfg.AllowedNetworks)
		var allowedCIDRs []string

		for cidr := range strings.SplitSeq(Cfg.AllowedNetworks, ",") {
			// Remove spaces and ignore empty sets
			if cidr := strings.TrimSpace(cidr); cidr != "" {
				allowedCIDRs = append(allowedCIDRs, cidr)
			}
		}

		r.Use(IPAccessControl(allowedCIDRs))
	}
	r.Use(securityHeaders)
	r.Use(routes.ErrorHandler())

	r.GET("/ping", func(c *gin.Context) {
		msg := c.Query("ping")
		if msg == "" {
			msg = "pong"
		}

		c.JSON(http.StatusOK, gin.H{
			"message": msg,
		})
	})

	r.GET("/config.json", func(c *gin.Context) {
		// Provide an initial config for the frontend
		var clientCfg = gin.H{
			"TokenTTL":   Cfg.TokenTTL,
			"SupportURL": Cfg.SupportURL,
		}

		c.JSON(http.StatusOK, clientCfg)
	})

	// Shared collaborators for the calendar routes
	broker := connector.NewBroker(&Cfg.Google, store)
	engine := sync.NewEngine(store, broker.Remote)
	engine.Mailer = email.NewClient(Cfg.Email)

	routes.Health(r.Group(""), store)

	// Authentication routes
	auth_rg := r.Group("/auth")
	routes.AuthRoutes(auth_rg, store)

	// Authenticated API
	api := r.Group("/api", routes.AuthMiddleware())
	routes.UserRoutes(api.Group("/users"), store)
	routes.EventRoutes(api.Group("/events"), store)
	routes.CalendarRoutes(api.Group("/calendar"), store, broker, engine)
	routes.FeedTokenRoutes(api.Group("/calendar/feed"))

	// Public ICS feed, authenticated by its own token
	routes.FeedRoute(r.Group("/calendar/feed"), store)

	return r
}
