package main

import (
	"context"
	stlog "log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-checkout/config"
	"go-checkout/gateway"
	"go-checkout/logging"
	"go-checkout/order"
	"go-checkout/store"
	"go-checkout/utils"
	"go-checkout/web/controllers"
	"go-checkout/web/middleware"
)

func main() {
	utils.LoadEnv()

	cfg := config.GetConfig()
	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	db, err := store.Connect(cfg.DatabaseDSN)
	if err != nil {
		stlog.Fatalln("Error connecting to database:", err)
	}

	gw := gateway.NewHostedCheckout(cfg.GatewayBaseURL, cfg.GatewayAPIKey, logger)
	orders := order.NewManager(store.New(db), gw, cfg.Currency, logger)

	// expire orders nobody ever came back for
	orders.StartExpirySweep(context.Background(), cfg.SweepInterval, cfg.PendingMaxAge)

	payments := &controllers.PaymentController{
		Orders:        orders,
		Logger:        logger,
		PublicBaseURL: cfg.PublicBaseURL,
	}

	r := gin.Default()
	r.Use(cors.Default())

	globalLimiter := middleware.NewRateLimiter(15, time.Minute) // 15 requests/min/IP
	globalLimiter.StartCleanup(10 * time.Minute)

	requireAuth := middleware.RequireAuth(cfg.JWTSecret)
	adminAuth := middleware.AdminAuth(cfg.AdminKey)

	r.POST("/payment", globalLimiter.Middleware(), requireAuth, payments.CreatePayment)
	r.POST("/payment/guest", globalLimiter.Middleware(), payments.CreateGuestPayment)
	r.GET("/payment/callback", payments.Callback)
	r.POST("/payment/:order_id/cancel", globalLimiter.Middleware(), requireAuth, payments.CancelPayment)
	r.GET("/payment/pending", globalLimiter.Middleware(), requireAuth, payments.PendingPayment)
	r.GET("/payment/guest/pending", globalLimiter.Middleware(), payments.GuestPendingPayment)
	r.GET("/payment/status/:order_id", globalLimiter.Middleware(), requireAuth, payments.GetPaymentStatus)

	// backoffice
	r.POST("/admin/payment/:order_id/complete", adminAuth, payments.CompletePayment)
	r.POST("/admin/payment/:order_id/refund", adminAuth, payments.RefundPayment)

	if err := r.Run(cfg.ListenAddr); err != nil {
		stlog.Fatalln(err)
	}
}
