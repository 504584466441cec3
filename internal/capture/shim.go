package capture

import (
	"encoding/json"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
)

// postMessageShim is installed on every document the login page navigates
// through. The companion login flow has no callback API for embedders; its
// only integration hook is calling ReactNativeWebView.postMessage with the
// auth payload, so the shim intercepts that and forwards every payload
// through the host bridge. Blocking native dialogs are suppressed so the
// page cannot stall the flow.
const postMessageShim = `
(function() {
  window.alert = function(msg) { console.log('Alert:', msg); };
  window.ReactNativeWebView = {
    postMessage: function(data) {
      if (typeof data !== 'string') {
        try { data = JSON.stringify(data); } catch (e) { return; }
      }
      window.__hostBridge(data);
    }
  };
})();
`

// successNotice replaces the page body once a token has been captured, so
// the user sees confirmation before the window closes. Cosmetic only.
const successNotice = `document.body.innerHTML = '<div style="font-family: sans-serif; background: #1a1a1a; color: #fff; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0;"><div style="text-align: center; padding: 40px; background: rgba(30,30,30,0.9); border-radius: 16px; border: 1px solid rgba(46,204,113,0.3);"><div style="font-size: 48px; margin-bottom: 16px;">✓</div><h2 style="color: #2ecc71; margin: 0 0 8px 0;">Steam Linked!</h2><p style="color: #888; margin: 0;">This window will close automatically.</p></div></div>';`

// tokenAliases is the ordered set of field names the login page has been
// observed to use for the auth token across versions.
var tokenAliases = []string{"token", "Token", "authToken", "AuthToken"}

// jwtPattern matches a JWT-shaped substring: three base64url segments, the
// first beginning with the {"... header prefix.
var jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

// ExtractToken applies the recognition policy to one bridge payload.
// Structured parse wins: the first non-empty alias field is the token, and a
// payload that parses as JSON but carries no alias yields nothing. Payloads
// that are not JSON fall back to a scan for a well-formed JWT substring.
func ExtractToken(payload string) (string, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err == nil {
		for _, alias := range tokenAliases {
			if v, ok := fields[alias].(string); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	if match := jwtPattern.FindString(payload); match != "" && wellFormedJWT(match) {
		return match, true
	}
	return "", false
}

// wellFormedJWT checks that a regex hit actually decodes as a JWT. The
// signature is not (and cannot be) verified here; the registration backend
// is the party that must reject forged tokens.
func wellFormedJWT(token string) bool {
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	return err == nil
}
