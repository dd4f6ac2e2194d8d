package deeplink

import (
	"net/http"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

func ClearCachedCallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svcCtx.Cache.Clear()
		httputil.OkJSON(w, &types.MessageResponse{Message: "Callback cleared"})
	}
}
