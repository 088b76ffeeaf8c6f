package safeurl

import "net/url"

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// Redact masks credentials in a portal URL for logging: userinfo and the
// username/password query params become "xxx". Unparseable input is
// returned fully masked rather than leaked.
func Redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "xxx"
	}
	if parsed.User != nil {
		parsed.User = url.User("xxx")
	}
	q := parsed.Query()
	for _, key := range []string{"username", "password", "token"} {
		if q.Has(key) {
			q.Set(key, "xxx")
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
