package rest

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterOptions configure the engine built by NewRouter.
type RouterOptions struct {
	ServiceName    string
	TrustedProxies []string
}

// NewRouter builds the gin engine. JSON routes are gzip-compressed; /cdn is
// not, so the blob length can be sent as Content-Length.
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(
		otelgin.Middleware(opts.ServiceName),
		requestID(),
		accessLog(h.logger),
		recovery(h.logger),
	)

	api := r.Group("/", gzip.Gzip(gzip.DefaultCompression))
	{
		api.GET("/memes", h.ListMemes)
		api.GET("/memes/random", h.RandomMeme)
		api.GET("/memes/count", h.CountMemes)
		api.GET("/memes/:id", h.GetMeme)

		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:id", h.GetCategory)

		api.GET("/users", h.ListUsers)
		api.GET("/users/lookup", h.LookupUser)
		api.GET("/users/:id", h.GetUser)
		api.GET("/users/:id/memes", h.UserMemes)
		api.GET("/users/:id/memes/:filename", h.UserMeme)

		api.POST("/upload", h.Upload)
	}

	r.GET("/cdn/:user/:filename", h.CDN)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": http.StatusNotFound, "error": "Not found"})
	})

	return r, nil
}
