package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rakib/go-commerce-store/internal/database"
)

// Server owns the gin engine and the database handle the store functions
// operate on. Auth is a deployment concern and not wired here.
type Server struct {
	engine *gin.Engine
	db     *sql.DB
}

func NewServer(db *sql.DB) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{engine: r, db: db}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.GET("slug/:slug", s.getProductBySlug)
		products.PATCH(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.PATCH(":id", s.updateOrder)
		orders.DELETE(":id", s.deleteOrder)

		blogs := v1.Group("/blogs")
		blogs.POST("", s.createBlog)
		blogs.GET("", s.listBlogs)
		blogs.GET(":id", s.getBlog)
		blogs.PATCH(":id", s.updateBlog)
		blogs.DELETE(":id", s.deleteBlog)
	}
}

// respondError maps the store's error taxonomy onto HTTP statuses. This is
// the only place status codes are decided.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrVariantNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrBlogNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrOrderAlreadyCancelled),
		errors.Is(err, database.ErrOrderNumberConflict),
		errors.Is(err, database.ErrSlugConflict):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
