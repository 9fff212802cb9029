package cors

import (
	"strings"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New returns a CORS middleware that honors a list of allowed origins.
// An empty list or a "*" entry admits every origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	return gincors.New(Config(allowedOrigins))
}

// Config builds the gin-contrib configuration for the dashboard origins.
func Config(allowedOrigins []string) gincors.Config {
	cfg := gincors.Config{
		AllowMethods:     []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}

	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			origins = nil
			break
		}
		origins = append(origins, origin)
	}

	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
