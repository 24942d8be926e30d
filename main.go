package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio-tracker/config"
	"portfolio-tracker/handlers"
	"portfolio-tracker/market"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db := config.InitDB()
	rdb := config.InitRedis()

	// Get underlying SQL DB and close it properly
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	// Auto-migrate models.
	if err := db.AutoMigrate(&models.User{}, &models.Lot{}, &models.Transaction{}, &models.StockPrice{}); err != nil {
		log.Fatal("Failed to migrate models:", err)
	}

	lots := store.New(db)
	oracle := market.New(rdb, lots, os.Getenv("ALPHA_VANTAGE_API_KEY"))
	engine := portfolio.NewEngine(lots, oracle)
	secret := []byte(os.Getenv("JWT_SECRET"))

	auth := handlers.NewAuthHandler(db, rdb, secret)
	trades := handlers.NewPortfolioHandler(engine, lots)
	quotes := handlers.NewMarketHandler(oracle)
	health := handlers.NewHealthHandler(lots)

	router := gin.Default()
	api := router.Group("/api")

	// Public routes
	api.POST("/create-account", auth.Signup)
	api.POST("/login", auth.Login)
	api.POST("/update-password", auth.UpdatePassword)
	api.GET("/health", health.Health)
	api.GET("/db-check", health.DBCheck)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(secret))
	{
		protected.GET("/stock/:symbol", quotes.GetQuote)
		protected.GET("/stock/:symbol/history", quotes.GetHistory)
		protected.GET("/stock/:symbol/company", quotes.GetCompany)
		protected.GET("/portfolio", trades.GetPortfolio)
		protected.GET("/portfolio/value", trades.GetPortfolioValue)
		protected.POST("/portfolio/buy", trades.Buy)
		protected.POST("/portfolio/sell", trades.Sell)
	}

	router.Run(":8080")
}
