// Package headers builds the fixed header set downstream game API clients
// send with an issued token.
package headers

// ForToken returns the downstream request headers for a bearer token. The
// non-authorization values match what the game client itself sends.
func ForToken(token string) map[string]string {
	return map[string]string{
		"User-Agent":      "Dalvik/2.1.0 (Linux; U; Android 9; ASUS_Z01QD Build/PI)",
		"Connection":      "Keep-Alive",
		"Accept-Encoding": "gzip",
		"Authorization":   "Bearer " + token,
		"Content-Type":    "application/x-www-form-urlencoded",
		"X-Unity-Version": "2018.4.11f1",
		"X-GA":            "v1 1",
		"ReleaseVersion":  "OB49",
	}
}
