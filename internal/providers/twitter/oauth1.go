package twitter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Firma OAuth 1.0a (HMAC-SHA1) según RFC 5849. Twitter es el único
// provider que la necesita, así que vive acá y no en un package aparte.

// percentEncode escapes per RFC 3986 §2.1 (stricter than url.QueryEscape:
// space is %20, and '+' '*' are escaped).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func nonce() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// signRequest construye el header Authorization para un request firmado.
// extra son parámetros oauth_* adicionales (callback, token, verifier);
// query son los parámetros de la URL que entran en la base string.
func signRequest(method, rawurl string, query url.Values, extra map[string]string, consumerKey, consumerSecret, tokenSecret string) string {
	oauth := map[string]string{
		"oauth_consumer_key":     consumerKey,
		"oauth_nonce":            nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_version":          "1.0",
	}
	for k, v := range extra {
		oauth[k] = v
	}

	// Base string: todos los parámetros (oauth + query) ordenados.
	params := make(map[string]string, len(oauth)+len(query))
	for k, v := range oauth {
		params[k] = v
	}
	for k := range query {
		params[k] = query.Get(k)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	base := strings.ToUpper(method) + "&" + percentEncode(rawurl) + "&" + percentEncode(strings.Join(pairs, "&"))

	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// Header: sólo los parámetros oauth_*, ordenados.
	hkeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hkeys = append(hkeys, k)
	}
	sort.Strings(hkeys)

	var hparts []string
	for _, k := range hkeys {
		hparts = append(hparts, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(oauth[k])))
	}
	return "OAuth " + strings.Join(hparts, ", ")
}
