package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamemate-server/internal/channel"
	"gamemate-server/internal/config"
	"gamemate-server/internal/db"
	"gamemate-server/internal/gamepost"
	"gamemate-server/internal/middleware"
	"gamemate-server/internal/notice"
	"gamemate-server/internal/notification"
	"gamemate-server/internal/push"
	"gamemate-server/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// setupAPI builds a fresh database and a router carrying the same route
// table as the server binary.
func setupAPI(t *testing.T) *chi.Mux {
	t.Helper()

	require.NoError(t, db.InitMemory())
	require.NoError(t, db.DB.AutoMigrate(
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
	))

	config.Conf.JWTSecret = testSecret
	config.Conf.CronSecret = "cron-secret"
	config.Conf.TimeWaitWindow = 24 * time.Hour
	config.Conf.TimeWaitPromoteAfter = 30 * time.Minute

	// The role cache is process-global; drop roles leaked by earlier tests
	// before reseeding against the fresh database.
	user.Roles.Reset()
	require.NoError(t, user.Roles.InitializeDefaultRoles())

	r := chi.NewRouter()

	r.Post("/roles/check", CheckPermissionHandler)
	r.Get("/game-posts", GetGamePostsHandler)
	r.Get("/game-posts/{id}", GetGamePostHandler)
	r.Post("/game-posts/{id}/view", ViewGamePostHandler)
	r.Get("/channels", GetChannelsHandler)
	r.Get("/notices", GetNoticesHandler)

	r.Get("/me", middleware.RequireAuth(MeHandler))
	r.Post("/game-posts", middleware.RequireAuth(CreateGamePostHandler))
	r.Patch("/game-posts/{id}", middleware.RequireAuth(UpdateGamePostHandler))
	r.Delete("/game-posts/{id}", middleware.RequireAuth(DeleteGamePostHandler))
	r.Post("/game-posts/{id}/join", middleware.RequireAuth(JoinGamePostHandler))
	r.Post("/game-posts/{id}/leave", middleware.RequireAuth(LeaveGamePostHandler))
	r.Post("/game-posts/{id}/wait/cancel", middleware.RequireAuth(CancelWaitingHandler))
	r.Patch("/game-posts/{id}/waiting/{waitingId}", ManualPromotionHandler)

	r.Get("/notifications", middleware.RequireAuth(GetNotificationsHandler))
	r.Post("/notifications/{id}/read", middleware.RequireAuth(MarkNotificationReadHandler))
	r.Post("/notifications/read-all", middleware.RequireAuth(MarkAllNotificationsReadHandler))
	r.Get("/notifications/unread-count", middleware.RequireAuth(GetUnreadCountHandler))

	r.Post("/push/subscribe", middleware.RequireAuth(SubscribePushHandler))
	r.Get("/push/check", middleware.RequireAuth(CheckPushHandler))
	r.Delete("/push/subscribe", middleware.RequireAuth(UnsubscribePushHandler))

	manageChannels := middleware.RequirePermission(user.PermissionManageChannels)
	r.Post("/channels", manageChannels(CreateChannelHandler))
	r.Put("/channels/order", manageChannels(OrderChannelsHandler))

	manageRoles := middleware.RequirePermission(user.PermissionManageRoles)
	r.Post("/roles", manageRoles(CreateRoleHandler))

	r.Post("/cron/status-update", middleware.RequireCronToken(StatusUpdateHandler))

	return r
}

// tokenFor signs a session token the way the external auth provider would.
func tokenFor(t *testing.T, subject string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// registerUser creates a profile and optionally moves it off the default
// role.
func registerUser(t *testing.T, subject, roleID string) {
	t.Helper()

	_, err := user.RegisterProfile(subject, subject, "", "")
	require.NoError(t, err)
	if roleID != "" && roleID != "user" {
		require.NoError(t, user.AssignRole(subject, roleID))
	}
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
