package main

import (
	"log"
	"net/http"
	"time"

	"gamemate-server/internal/channel"
	"gamemate-server/internal/config"
	"gamemate-server/internal/db"
	"gamemate-server/internal/gamepost"
	"gamemate-server/internal/handlers"
	"gamemate-server/internal/logging"
	"gamemate-server/internal/metrics"
	"gamemate-server/internal/middleware"
	"gamemate-server/internal/notice"
	"gamemate-server/internal/notification"
	"gamemate-server/internal/push"
	"gamemate-server/internal/user"
	"gamemate-server/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	NoCache    = middleware.CacheControl(0, "no-cache")
	Cache2Min  = middleware.CacheControl(2*time.Minute, "private")
	Cache1Hour = middleware.CacheControl(1*time.Hour, "public")
)

func main() {
	// The logger is not up yet, so config failures go through the stdlib
	// logger.
	if err := config.LoadConfig("config.yaml"); err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if _, err := logging.Init(config.Conf.Domain == ""); err != nil {
		panic(err)
	}
	defer zap.S().Sync()

	if err := db.Init(config.Conf.DatabasePath); err != nil {
		zap.S().Fatalw("database init failed", "error", err)
	}

	if err := db.DB.AutoMigrate(
		&user.RoleModel{},
		&user.Profile{},
		&user.Suspension{},
		&gamepost.GamePost{},
		&gamepost.Participant{},
		&gamepost.WaitingParticipant{},
		&channel.Channel{},
		&notification.Notification{},
		&push.Subscription{},
		&notice.Notice{},
		&metrics.Snapshot{},
		&metrics.Hourly{},
	); err != nil {
		zap.S().Fatalw("migration failed", "error", err)
	}

	if err := user.Roles.InitializeDefaultRoles(); err != nil {
		zap.S().Fatalw("seeding default roles failed", "error", err)
	}
	user.Roles.LoadRolesFromDB()
	createDefaultChannelIfNeeded()

	go ws.GlobalHub.Run()

	metricsService := metrics.NewService(ws.GlobalHub)
	go metricsService.Run()
	defer metricsService.Stop()

	if config.Conf.CronSpec != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(config.Conf.CronSpec, func() {
			handlers.RunStatusUpdateJob()
		}); err != nil {
			zap.S().Fatalw("invalid cron spec", "spec", config.Conf.CronSpec, "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.TrackRequests)
	r.Use(httprate.LimitByIP(300, time.Minute))

	// Public
	r.Get("/server", Cache1Hour(handlers.GetServerMetadataHandler))
	r.Get("/healthz", handlers.HealthzHandler)
	r.Get("/ws", ws.HandleWebSocket)
	r.With(httprate.LimitByIP(10, time.Minute)).
		Post("/auth/register", middleware.RequireIdentity(handlers.RegisterHandler))
	r.Post("/roles/check", NoCache(handlers.CheckPermissionHandler))

	// Retired route; answers 410 for every caller, no session or state
	// inspection involved
	r.Patch("/game-posts/{id}/waiting/{waitingId}", handlers.ManualPromotionHandler)

	r.Get("/game-posts", handlers.GetGamePostsHandler)
	r.Get("/game-posts/{id}", handlers.GetGamePostHandler)
	r.Post("/game-posts/{id}/view", handlers.ViewGamePostHandler)

	r.Get("/channels", Cache2Min(handlers.GetChannelsHandler))
	r.Get("/notices", handlers.GetNoticesHandler)
	r.Get("/notices/{id}", handlers.GetNoticeHandler)

	r.Handle("/uploads/*", middleware.CacheControl(24*time.Hour, "public")(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(config.Conf.UploadsDir))).ServeHTTP))

	// Authenticated
	r.Get("/me", middleware.RequireAuth(handlers.MeHandler))
	r.Patch("/me/nickname", middleware.RequireAuth(handlers.UpdateNicknameHandler))
	r.Post("/me/avatar", middleware.RequireAuth(handlers.UploadAvatarHandler))

	r.Post("/game-posts", middleware.RequireAuth(handlers.CreateGamePostHandler))
	r.Patch("/game-posts/{id}", middleware.RequireAuth(handlers.UpdateGamePostHandler))
	r.Delete("/game-posts/{id}", middleware.RequireAuth(handlers.DeleteGamePostHandler))
	r.Post("/game-posts/{id}/join", middleware.RequireAuth(handlers.JoinGamePostHandler))
	r.Post("/game-posts/{id}/leave", middleware.RequireAuth(handlers.LeaveGamePostHandler))
	r.Post("/game-posts/{id}/wait/cancel", middleware.RequireAuth(handlers.CancelWaitingHandler))

	r.Get("/notifications", middleware.RequireAuth(handlers.GetNotificationsHandler))
	r.Post("/notifications/{id}/read", middleware.RequireAuth(handlers.MarkNotificationReadHandler))
	r.Post("/notifications/read-all", middleware.RequireAuth(handlers.MarkAllNotificationsReadHandler))
	r.Get("/notifications/unread-count", middleware.RequireAuth(handlers.GetUnreadCountHandler))

	r.Post("/push/subscribe", middleware.RequireAuth(handlers.SubscribePushHandler))
	r.Get("/push/check", middleware.RequireAuth(handlers.CheckPushHandler))
	r.Delete("/push/subscribe", middleware.RequireAuth(handlers.UnsubscribePushHandler))

	r.Get("/roles", middleware.RequireAuth(handlers.GetRolesHandler))

	// Permission-gated
	manageChannels := middleware.RequirePermission(user.PermissionManageChannels)
	r.Post("/channels", manageChannels(handlers.CreateChannelHandler))
	r.Patch("/channels/{id}", manageChannels(handlers.UpdateChannelHandler))
	r.Delete("/channels/{id}", manageChannels(handlers.DeleteChannelHandler))
	r.Put("/channels/order", manageChannels(handlers.OrderChannelsHandler))

	manageRoles := middleware.RequirePermission(user.PermissionManageRoles)
	r.Post("/roles", manageRoles(handlers.CreateRoleHandler))
	r.Patch("/roles", manageRoles(handlers.UpdateRoleHandler))
	r.Delete("/roles", manageRoles(handlers.DeleteRoleHandler))
	r.Post("/roles/assign", manageRoles(handlers.AssignRoleHandler))

	manageNotices := middleware.RequirePermission(user.PermissionManageNotices)
	r.Post("/notices", manageNotices(handlers.CreateNoticeHandler))
	r.Patch("/notices/{id}", manageNotices(handlers.UpdateNoticeHandler))
	r.Delete("/notices/{id}", manageNotices(handlers.DeleteNoticeHandler))

	manageUsers := middleware.RequirePermission(user.PermissionManageUsers)
	r.Get("/admin/users", manageUsers(handlers.GetUsersHandler))
	r.Post("/admin/suspend", manageUsers(handlers.SuspendUserHandler))
	r.Post("/admin/unsuspend", manageUsers(handlers.UnsuspendUserHandler))
	r.Get("/admin/metrics", middleware.RequirePermission(user.PermissionAccessAdminPanel)(handlers.GetMetricsHandler))

	// External scheduler trigger; also covered by the internal cron when
	// cron_spec is set.
	r.Post("/cron/status-update", middleware.RequireCronToken(handlers.StatusUpdateHandler))

	zap.S().Infow("server listening", "port", config.Conf.Port, "name", config.Conf.Name)
	if err := http.ListenAndServe(config.Conf.Port, r); err != nil {
		zap.S().Fatalw("server stopped", "error", err)
	}
}

func createDefaultChannelIfNeeded() {
	var count int64
	if err := db.DB.Model(&channel.Channel{}).Count(&count).Error; err != nil {
		zap.S().Errorw("counting channels", "error", err)
		return
	}
	if count > 0 {
		return
	}

	if _, err := channel.Create("general", "General discussion", nil); err != nil {
		zap.S().Errorw("creating default channel", "error", err)
		return
	}
	zap.S().Infow("created default channel", "name", "general")
}
