package api

import (
	"net/http"
	"os"
	"time"

	"huntnav/internal/buildinfo"
)

// DebugJSON reports the effective configuration for troubleshooting.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 s.Cfg.Port,
			"MAP_ORDER":            s.Cfg.MapOrder,
			"TWO_OPT_MAX_ITERS":    s.Cfg.TwoOptIters,
			"RATE_RPS":             s.Cfg.RateRPS,
			"RATE_BURST":           s.Cfg.RateBurst,
			"AUTH_MODE":            os.Getenv("AUTH_MODE"),
			"WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
			"HAS_DATABASE_URL":     s.Cfg.DatabaseURL != "",
			"HAS_REDIS_URL":        s.Cfg.RedisURL != "",
			"REGIONS":              len(s.Cfg.Regions),
		},
	}
	writeJSON(w, http.StatusOK, info)
}
