package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"printforge-backend/internal/auth"
	"printforge-backend/internal/cdn"
	"printforge-backend/internal/config"
	"printforge-backend/internal/database"
	"printforge-backend/internal/handlers"
	"printforge-backend/internal/mailer"
	"printforge-backend/internal/middleware"
	"printforge-backend/internal/payment"
	"printforge-backend/internal/services"
	"printforge-backend/internal/shipping"
	"printforge-backend/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	secureCookies := cfg.Environment == "production"

	// Run migrations before opening the main pool.
	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	blobStore := storage.NewClient(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket)
	imageCDN, err := cdn.NewClient(cfg.CloudinaryURL)
	if err != nil {
		log.Fatalf("Failed to initialize CDN client: %v", err)
	}

	paymentGateway := payment.NewClient(cfg.PaymobBaseURL, cfg.PaymobAPIKey, cfg.PaymobIntegrationID)
	shippingClient := shipping.NewClient(shipping.Config{
		Endpoint:      cfg.AramexEndpoint,
		UserName:      cfg.AramexUserName,
		Password:      cfg.AramexPassword,
		AccountNumber: cfg.AramexAccountNumber,
		AccountPin:    cfg.AramexAccountPin,
		AccountEntity: cfg.AramexAccountEntity,
		OriginCity:    cfg.ShipFromCity,
		OriginCountry: cfg.ShipFromCountry,
		FallbackFee:   cfg.FallbackShippingFee,
	})

	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	mail := &mailer.LogMailer{BaseURL: cfg.BaseURL}

	ingestionService := services.NewIngestionService(db, blobStore, imageCDN, services.PricingConfig{
		MaterialDensityGPerCm3: cfg.MaterialDensityGPerCm3,
		PricePerGram:           cfg.PricePerGram,
		SetupFee:               cfg.SetupFee,
	})
	cartService := services.NewCartService(db, blobStore)
	orderService := services.NewOrderService(db, cartService, shippingClient)

	healthHandler := handlers.NewHealthHandler()
	customDesignHandler := handlers.NewCustomDesignHandler(ingestionService)
	productsHandler := handlers.NewProductsHandler(db, ingestionService)
	cartHandler := handlers.NewCartHandler(cartService)
	ordersHandler := handlers.NewOrdersHandler(orderService)
	checkoutHandler := handlers.NewCheckoutHandler(orderService, paymentGateway, cfg.PaymobHMACSecret, cfg.PaymobIframeID)
	usersHandler := handlers.NewUsersHandler(db, issuer, mail, secureCookies)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.BaseURL}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler.Check)

	api := router.Group("/api/v1")

	// Account routes.
	authGroup := api.Group("/auth")
	authGroup.POST("/register", usersHandler.Register)
	authGroup.GET("/verify", usersHandler.Verify)
	authGroup.POST("/login", usersHandler.Login)
	authGroup.POST("/logout", usersHandler.Logout)

	// Public catalog.
	api.GET("/products", productsHandler.List)
	api.GET("/products/:id", productsHandler.Get)

	// Cart, checkout and custom designs serve users and guests alike; the
	// identity middleware resolves the single owner key per request.
	shop := api.Group("/")
	shop.Use(middleware.AuthOptional(issuer), middleware.CartIdentity(secureCookies))
	shop.POST("/custom-designs", customDesignHandler.Upload)
	shop.GET("/cart", cartHandler.Get)
	shop.DELETE("/cart", cartHandler.Clear)
	shop.POST("/cart/items", cartHandler.Add)
	shop.PUT("/cart/items/:productId", cartHandler.UpdateQuantity)
	shop.DELETE("/cart/items/:productId", cartHandler.Remove)
	shop.POST("/orders", ordersHandler.Create)
	shop.POST("/orders/:id/payment-key", checkoutHandler.PaymentKey)

	// Order history requires an account.
	account := api.Group("/")
	account.Use(middleware.AuthRequired(issuer))
	account.GET("/orders", ordersHandler.List)
	account.GET("/orders/:id", ordersHandler.Get)
	account.GET("/users/me", usersHandler.Profile)
	account.PUT("/users/me", usersHandler.UpdateProfile)

	// Admin catalog management.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(issuer), middleware.AdminRequired())
	admin.POST("/products", productsHandler.Create)
	admin.DELETE("/products/:id", productsHandler.Delete)
	admin.PATCH("/orders/:id/status", ordersHandler.UpdateStatus)

	// Webhook is unauthenticated; the HMAC signature is the credential.
	router.POST("/api/v1/payments/webhook", checkoutHandler.Webhook)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Drain in-flight requests before the deferred db.Close runs.
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
