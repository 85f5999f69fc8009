package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/courseloop/platform_be/internal/config"
	"github.com/courseloop/platform_be/internal/db"
	"github.com/courseloop/platform_be/internal/directory"
	"github.com/courseloop/platform_be/internal/handlers"
	"github.com/courseloop/platform_be/internal/middleware"
	"github.com/courseloop/platform_be/internal/models"
	"github.com/courseloop/platform_be/internal/ratelimit"
	"github.com/courseloop/platform_be/internal/services/payment"
	"github.com/courseloop/platform_be/internal/services/razorpay"
	"github.com/courseloop/platform_be/internal/services/wallet"
	"github.com/courseloop/platform_be/internal/services/withdrawal"
	"github.com/courseloop/platform_be/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.Student{},
		&models.Instructor{},
		&models.Admin{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.WithdrawalRequest{},
		&models.PaymentOrder{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := ratelimit.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	limiter := ratelimit.NewLimiter(rdb)

	dir := directory.NewDirectory(gdb)
	walletStore := store.NewWalletStore(gdb)
	walletSvc := wallet.NewWalletService(walletStore, dir, logger)
	withdrawalSvc := withdrawal.NewWithdrawalService(gdb, walletSvc, directory.Instructors{DB: gdb}, logger)
	gateway := razorpay.NewRazorpayService()
	paymentSvc := payment.NewPaymentService(gdb, gateway, walletSvc, logger)

	walletH := handlers.NewWalletHandler(walletSvc)
	paymentH := handlers.NewPaymentHandler(paymentSvc, limiter, logger)
	withdrawalH := handlers.NewWithdrawalHandler(withdrawalSvc)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	// wallet (any signed-in role)
	protected.Get("/wallet", walletH.GetMyWallet)
	protected.Get("/wallet/transactions", walletH.GetTransactions)

	// payments
	protected.Post("/payments/order", paymentH.CreateOrder)
	protected.Post("/payments/verify", paymentH.VerifyPayment)

	// instructor withdrawals
	protected.Post("/instructor/withdrawals",
		middleware.RequireRoles("instructor"),
		withdrawalH.Create,
	)
	protected.Get("/instructor/withdrawals",
		middleware.RequireRoles("instructor"),
		withdrawalH.ListMine,
	)
	protected.Put("/instructor/withdrawals/:id/retry",
		middleware.RequireRoles("instructor"),
		withdrawalH.Retry,
	)

	// admin settlement
	protected.Get("/admin/withdrawals",
		middleware.RequireRoles("admin"),
		withdrawalH.ListAll,
	)
	protected.Put("/admin/withdrawals/:id/approve",
		middleware.RequireRoles("admin"),
		withdrawalH.Approve,
	)
	protected.Put("/admin/withdrawals/:id/reject",
		middleware.RequireRoles("admin"),
		withdrawalH.Reject,
	)

	logger.Info("starting api", zap.String("port", cfg.AppPort))
	log.Fatal(app.Listen(":" + cfg.AppPort))
}
