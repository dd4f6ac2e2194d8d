package handler

import (
	"net/http"
	"time"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.HealthResponse{
			Status:    "ok",
			Version:   svcCtx.Version,
			Variant:   string(svcCtx.Config.Variant()),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
