// Package deeplink turns custom-scheme URLs handed to the shell by the OS into
// OAuth callback records and delivers them to the frontend.
//
// The backend finishes the OAuth exchange itself and 302-redirects the system
// browser to
//
//	jiwuchat://oauth/callback?platform=github&action=login&needBind=false&token=...
//
// The OS then launches the shell (or re-activates the running one) with that
// URL. Nothing here talks to the identity provider.
package deeplink

import (
	"strings"
)

const (
	// DefaultScheme is the custom URL scheme the shell registers.
	DefaultScheme = "jiwuchat"

	// CallbackPath is the host+path every OAuth redirect uses.
	CallbackPath = "oauth/callback"

	// EventOAuthCallback is the frontend event name carrying a CallbackRecord.
	EventOAuthCallback = "oauth-callback"
)

// Schema selects which set of query keys the parser recognises. The two
// redirect formats are incompatible and are never merged.
type Schema string

const (
	// SchemaRich is the login/bind result format written by the backend relay.
	SchemaRich Schema = "rich"
	// SchemaLegacy is the raw authorization-code format (code/state).
	SchemaLegacy Schema = "legacy"
)

// Valid reports whether s names a known schema.
func (s Schema) Valid() bool {
	return s == SchemaRich || s == SchemaLegacy
}

// CallbackRecord is one parsed OAuth redirect. Every field except RawURL is
// nil when its key was absent from the query string.
type CallbackRecord struct {
	Platform *string `json:"platform"`
	Action   *string `json:"action"`

	Error     *string `json:"error"`
	ErrorCode *string `json:"errorCode"`
	Message   *string `json:"message"`

	// login flow
	NeedBind *bool   `json:"needBind"`
	Token    *string `json:"token"`
	OAuthKey *string `json:"oauthKey"`
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Email    *string `json:"email"`

	// bind flow
	BindSuccess *bool `json:"bindSuccess"`

	// legacy schema only
	Code  *string `json:"code,omitempty"`
	State *string `json:"state,omitempty"`

	RawURL string `json:"raw_url"`
}

// CallbackPrefix returns "<scheme>://oauth/callback".
func CallbackPrefix(scheme string) string {
	return scheme + "://" + CallbackPath
}

// IsOAuthCallback reports whether raw targets the OAuth callback path of the
// given scheme. It is a plain prefix check on the unparsed string.
func IsOAuthCallback(scheme, raw string) bool {
	return strings.HasPrefix(raw, CallbackPrefix(scheme))
}

// Parse decodes raw with the rich schema.
func Parse(raw string) CallbackRecord {
	return SchemaRich.Parse(raw)
}

// Parse decodes raw into a CallbackRecord. It never fails: input that is not
// an absolute URL yields a record carrying only RawURL.
func (s Schema) Parse(raw string) CallbackRecord {
	rec := CallbackRecord{RawURL: raw}

	if !hasScheme(raw) {
		return rec
	}
	rest, _, _ := strings.Cut(raw, "#")
	_, rawQuery, _ := strings.Cut(rest, "?")

	assign := s.richField
	if s == SchemaLegacy {
		assign = s.legacyField
	}
	for _, p := range queryPairs(rawQuery) {
		assign(&rec, p.key, p.value)
	}
	return rec
}

func (Schema) richField(rec *CallbackRecord, key, value string) {
	switch key {
	case "platform":
		rec.Platform = strPtr(value)
	case "action":
		rec.Action = strPtr(value)
	case "error":
		rec.Error = strPtr(value)
	case "errorCode":
		rec.ErrorCode = strPtr(value)
	case "message":
		rec.Message = strPtr(value)
	case "needBind":
		rec.NeedBind = literalBool(value)
	case "token":
		rec.Token = strPtr(value)
	case "oauthKey":
		rec.OAuthKey = strPtr(value)
	case "nickname":
		rec.Nickname = strPtr(value)
	case "avatar":
		rec.Avatar = strPtr(value)
	case "email":
		rec.Email = strPtr(value)
	case "bindSuccess":
		rec.BindSuccess = literalBool(value)
	}
}

func (Schema) legacyField(rec *CallbackRecord, key, value string) {
	switch key {
	case "code":
		rec.Code = strPtr(value)
	case "state":
		rec.State = strPtr(value)
	case "platform":
		rec.Platform = strPtr(value)
	case "action":
		rec.Action = strPtr(value)
	case "error":
		rec.Error = strPtr(value)
	}
}

// ExtractURLs returns the arguments that carry the given scheme, in order.
// Linux and Windows pass a deep link to the launched process as an argv entry.
func ExtractURLs(args []string, scheme string) []string {
	prefix := scheme + "://"
	var urls []string
	for _, a := range args {
		a = strings.Trim(a, `"`)
		if strings.HasPrefix(a, prefix) {
			urls = append(urls, a)
		}
	}
	return urls
}

type pair struct {
	key, value string
}

// hasScheme reports whether raw starts with an RFC 3986 scheme followed by ':'.
func hasScheme(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9', c == '+', c == '-', c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

// queryPairs splits a raw query with application/x-www-form-urlencoded rules.
// Unlike url.ParseQuery it keeps pairs whose escapes are malformed and never
// treats ';' as a separator.
func queryPairs(rawQuery string) []pair {
	var pairs []pair
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		pairs = append(pairs, pair{key: formDecode(k), value: formDecode(v)})
	}
	return pairs
}

// formDecode turns '+' into a space and decodes each valid %XX on its own.
// A '%' not followed by two hex digits stays as literal text.
func formDecode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// literalBool is true only for the exact string "true". "True", "1" and the
// empty string all give false, never nil.
func literalBool(v string) *bool {
	b := v == "true"
	return &b
}

func strPtr(s string) *string {
	return &s
}
