package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types. Media is
// deliberately absent: the workspace streams previews through it.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
}

// trackerDomains are ad and analytics hosts blocked when BlockAds is set.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"amplitude.com":         {},
	"intercom.io":           {},
	"sentry.io":             {},
	"clarity.ms":            {},
	"ads-twitter.com":       {},
	"tiktok.com":            {},
}

// isTrackerHost reports whether host or any parent domain is blocklisted.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// setupHijack installs a request interceptor that fails blocked resource
// types and tracker requests. It returns nil when nothing is blocked;
// otherwise the caller stops the returned router.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		rt, ok := resourceTypes[name]
		if !ok {
			slog.Warn("ignoring unknown blocked resource type", "type", name)
			continue
		}
		blocked[rt] = struct{}{}
	}
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, ok := blocked[ctx.Request.Type()]; ok {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isTrackerHost(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()

	slog.Debug("request blocking enabled", "types", len(blocked), "blockAds", blockAds)
	return router
}
