package webauthn

import "strings"

// AndroidApp describes one Android client allowed to perform ceremonies,
// keyed by its package name with the signing-certificate hash that forms its
// assertion origin.
type AndroidApp struct {
	PackageName string
	KeyHash     string
}

// ParseAndroidRegistry parses "package-name=key-hash" pairs from config.
// Malformed entries are skipped.
func ParseAndroidRegistry(entries []string) []AndroidApp {
	apps := make([]AndroidApp, 0, len(entries))
	for _, entry := range entries {
		name, hash, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || hash == "" {
			continue
		}
		apps = append(apps, AndroidApp{PackageName: name, KeyHash: hash})
	}
	return apps
}

// Origin returns the WebAuthn assertion origin for the app.
func (a AndroidApp) Origin() string {
	return "android:apk-key-hash:" + a.KeyHash
}

// ResolveExpectedOrigin picks the expected assertion origin for a request
// from its User-Agent alone: a registered Android package name appearing in
// the UA selects that app's apk-key-hash origin, anything else selects the
// web origin. Pure function of its inputs.
func ResolveExpectedOrigin(userAgent, webOrigin string, registry []AndroidApp) string {
	for _, app := range registry {
		if app.PackageName != "" && strings.Contains(userAgent, app.PackageName) {
			return app.Origin()
		}
	}
	return webOrigin
}

// AllOrigins returns the web origin plus every registered Android origin,
// for relying-party configuration.
func AllOrigins(webOrigin string, registry []AndroidApp) []string {
	origins := make([]string, 0, len(registry)+1)
	origins = append(origins, webOrigin)
	for _, app := range registry {
		origins = append(origins, app.Origin())
	}
	return origins
}
