package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rakib/go-commerce-store/internal/api"
	"github.com/rakib/go-commerce-store/internal/config"
	"github.com/rakib/go-commerce-store/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	gin.SetMode(cfg.Server.GinMode)
	server := api.NewServer(db)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
