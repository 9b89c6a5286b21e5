package twitter

import (
	"net/url"
	"strings"
	"testing"
)

func TestPercentEncode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"abcXYZ019", "abcXYZ019"},
		{"-._~", "-._~"},
		{"hello world", "hello%20world"},
		{"a+b*c", "a%2Bb%2Ac"},
		{"Ladies + Gentlemen", "Ladies%20%2B%20Gentlemen"},
		{"Dogs, Cats & Mice", "Dogs%2C%20Cats%20%26%20Mice"},
		{"☃", "%E2%98%83"},
		{"", ""},
	}
	for _, c := range cases {
		if got := percentEncode(c.in); got != c.want {
			t.Errorf("percentEncode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSignRequestHeaderShape(t *testing.T) {
	h := signRequest("POST", "https://api.twitter.com/oauth/request_token", nil,
		map[string]string{"oauth_callback": "https://app.test/auth/twitter/callback"},
		"ckey", "csec", "")

	if !strings.HasPrefix(h, "OAuth ") {
		t.Fatalf("header does not start with OAuth: %q", h)
	}
	for _, want := range []string{
		`oauth_consumer_key="ckey"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_version="1.0"`,
		`oauth_callback="https%3A%2F%2Fapp.test%2Fauth%2Ftwitter%2Fcallback"`,
		`oauth_signature="`,
		`oauth_nonce="`,
		`oauth_timestamp="`,
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header missing %s: %q", want, h)
		}
	}
}

func TestSignRequestQueryParamsStayOutOfHeader(t *testing.T) {
	q := url.Values{"include_email": {"true"}}
	h := signRequest("GET", "https://api.twitter.com/1.1/account/verify_credentials.json", q,
		map[string]string{"oauth_token": "tok"}, "ckey", "csec", "tsec")

	// Query params enter the signature base string but never the header.
	if strings.Contains(h, "include_email") {
		t.Fatalf("query param leaked into header: %q", h)
	}
	if !strings.Contains(h, `oauth_token="tok"`) {
		t.Fatalf("oauth_token missing from header: %q", h)
	}
}

func TestNonceIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := nonce()
		if len(n) != 32 {
			t.Fatalf("nonce length = %d", len(n))
		}
		if seen[n] {
			t.Fatalf("duplicate nonce %q", n)
		}
		seen[n] = true
	}
}
