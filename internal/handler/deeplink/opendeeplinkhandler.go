package deeplink

import (
	"errors"
	"net/http"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

// Hand URLs from another process to the running shell as runtime URLs
func OpenDeepLinkHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OpenDeepLinkRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if len(req.URLs) == 0 {
			httputil.Error(w, errors.New("urls is required"))
			return
		}

		accepted := 0
		for _, u := range req.URLs {
			if svcCtx.Dispatcher.HandleRuntimeURL(u) {
				accepted++
			}
		}
		logging.Debugf("[deeplink] forwarded %d url(s), %d accepted", len(req.URLs), accepted)
		httputil.OkJSON(w, &types.OpenDeepLinkResponse{Accepted: accepted})
	}
}
