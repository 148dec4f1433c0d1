package main

import (
	"context"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"google.golang.org/api/option"

	push "github.com/nvbf/quiniela/repos/push"
	resend "github.com/nvbf/quiniela/repos/resend"
	store "github.com/nvbf/quiniela/repos/store"

	auth "github.com/nvbf/quiniela/pkg/auth"
	config "github.com/nvbf/quiniela/pkg/config"
	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"

	admin "github.com/nvbf/quiniela/services/admin"
	badges "github.com/nvbf/quiniela/services/badges"
	closure "github.com/nvbf/quiniela/services/closure"
	devices "github.com/nvbf/quiniela/services/devices"
	podium "github.com/nvbf/quiniela/services/podium"
	predictions "github.com/nvbf/quiniela/services/predictions"
	reminders "github.com/nvbf/quiniela/services/reminders"
	settlement "github.com/nvbf/quiniela/services/settlement"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	credentialsOption := option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))

	firestoreClient, err := firestore.NewClient(ctx, cfg.ProjectID, credentialsOption)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, credentialsOption)
	if err != nil {
		log.Fatalf("error initializing app: %v\n", err)
	}
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v\n", err)
	}
	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		log.Fatalf("error getting Messaging client: %v\n", err)
	}

	clock := timehelper.SystemClock{}
	storeService := store.NewService(firestoreClient)
	pushClient := push.NewClient(messagingClient, cfg.AppBaseURL, cfg.PushRate)
	resendService := resend.NewService(cfg.ResendKey, cfg.AlertFrom, cfg.AlertEmails, clock)
	if !resendService.Enabled() {
		log.Printf("RESEND_KEY not set, reminder failure alerts are disabled\n")
	}

	settlementService := settlement.NewSettlementService(storeService)
	closureService := closure.NewClosureService(storeService, clock)
	dispatcherService := reminders.NewDispatcherService(storeService, pushClient, resendService, clock, cfg.ReminderStale)
	badgeService := badges.NewBadgeService(storeService, pushClient)
	predictionService := predictions.NewPredictionService(storeService, clock)
	podiumService := podium.NewPodiumService(storeService)
	deviceService := devices.NewDeviceService(storeService, clock)
	adminService := admin.NewAdminService(storeService)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CorsHosts
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Access-Control-Allow-Origin"}

	router := gin.Default()
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	podiumRouter := router.Group("/podium/v1")

	settlementRouter := router.Group("/settlement/v1")
	settlementRouter.Use(auth.AuthMiddleware(authClient), auth.RequireSelfOrRole(storeService, "admin", "uid"))

	closureRouter := router.Group("/closure/v1")
	closureRouter.Use(auth.AuthMiddleware(authClient), auth.RequireRole(storeService, "admin"))

	badgesRouter := router.Group("/badges/v1")
	badgesRouter.Use(auth.AuthMiddleware(authClient))

	predictionsRouter := router.Group("/quinielas/v1")
	predictionsRouter.Use(auth.AuthMiddleware(authClient))

	devicesRouter := router.Group("/devices/v1")
	devicesRouter.Use(auth.AuthMiddleware(authClient))

	adminRouter := router.Group("/admin/v1")
	adminRouter.Use(auth.AuthMiddleware(authClient), auth.RequireRole(storeService, "admin"))

	settlement.NewHTTPHandler(settlement.HTTPOptions{
		Service: settlementService,
		Router:  settlementRouter,
	})

	closure.NewHTTPHandler(closure.HTTPOptions{
		Service: closureService,
		Router:  closureRouter,
	})

	badges.NewHTTPHandler(badges.HTTPOptions{
		Service: badgeService,
		Router:  badgesRouter,
	})

	predictions.NewHTTPHandler(predictions.HTTPOptions{
		Service: predictionService,
		Router:  predictionsRouter,
	})

	podium.NewHTTPHandler(podium.HTTPOptions{
		Service: podiumService,
		Router:  podiumRouter,
	})

	devices.NewHTTPHandler(devices.HTTPOptions{
		Service: deviceService,
		Router:  devicesRouter,
	})

	admin.NewHTTPHandler(admin.HTTPOptions{
		Service: adminService,
		Router:  adminRouter,
	})

	reminders.NewHTTPHandler(reminders.HTTPOptions{
		Service: dispatcherService,
		Router:  adminRouter,
	})

	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.DispatchSchedule, reminders.Job{Service: dispatcherService, Timeout: cfg.JobTimeout}); err != nil {
		log.Fatalf("invalid DISPATCH_SCHEDULE %q: %v\n", cfg.DispatchSchedule, err)
	}
	if _, err := scheduler.AddJob(cfg.ClosureSchedule, closure.Job{Service: closureService, Timeout: cfg.JobTimeout}); err != nil {
		log.Fatalf("invalid CLOSURE_SCHEDULE %q: %v\n", cfg.ClosureSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Fatal(router.Run(":" + cfg.Port))
}
