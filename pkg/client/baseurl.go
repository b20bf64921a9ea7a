package client

import "strings"

// ProductionOrigin is used when no API origin is configured.
const ProductionOrigin = "https://bm-branch-server.vercel.app"

// NormalizeBaseURL turns an origin into the API root: trailing slashes are
// dropped and "/api" is appended unless already present.
func NormalizeBaseURL(origin string) string {
	u := strings.TrimRight(strings.TrimSpace(origin), "/")
	if u == "" {
		u = ProductionOrigin
	}
	if !strings.HasSuffix(u, "/api") {
		u += "/api"
	}
	return u
}
