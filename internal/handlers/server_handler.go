package handlers

import (
	"net/http"

	"gamemate-server/internal/config"
	"gamemate-server/internal/db"
	"gamemate-server/internal/gamepost"
	"gamemate-server/internal/user"
	"gamemate-server/internal/ws"
)

// GetServerMetadataHandler returns the public description of this
// instance.
func GetServerMetadataHandler(w http.ResponseWriter, r *http.Request) {
	var memberCount int64
	db.DB.Model(&user.Profile{}).Count(&memberCount)

	var openPosts int64
	db.DB.Model(&gamepost.GamePost{}).
		Where("status IN ?", []gamepost.PostStatus{gamepost.StatusOpen, gamepost.StatusFull}).
		Count(&openPosts)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":         config.Conf.Name,
		"description":  config.Conf.Description,
		"icon":         config.Conf.Icon,
		"member_count": memberCount,
		"open_posts":   openPosts,
		"online_count": ws.GlobalHub.OnlineCount(),
	})
}

func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
