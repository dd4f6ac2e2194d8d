package deeplink

import (
	"net/http"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

// Get the cached OAuth callback; ?take=true empties the slot
func GetCachedCallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GetCachedCallbackRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		load := svcCtx.Cache.Load
		if req.Take {
			load = svcCtx.Cache.Take
		}

		resp := &types.CachedCallbackResponse{}
		if rec, ok := load(); ok {
			resp.Callback = &rec
		}
		httputil.OkJSON(w, resp)
	}
}
