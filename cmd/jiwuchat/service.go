package cli

import "github.com/jiwuchat/jiwuchat-shell/internal/deeplink"

// DeepLinkService is bound to the desktop frontend. It lets the web app pull
// a callback it missed while it was still loading.
type DeepLinkService struct {
	cache *deeplink.Slot
}

func NewDeepLinkService(cache *deeplink.Slot) *DeepLinkService {
	return &DeepLinkService{cache: cache}
}

// CachedCallback returns the most recent callback, or nil.
func (s *DeepLinkService) CachedCallback() *deeplink.CallbackRecord {
	if rec, ok := s.cache.Load(); ok {
		return &rec
	}
	return nil
}

// TakeCachedCallback returns the most recent callback and clears it.
func (s *DeepLinkService) TakeCachedCallback() *deeplink.CallbackRecord {
	if rec, ok := s.cache.Take(); ok {
		return &rec
	}
	return nil
}
