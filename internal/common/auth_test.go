package common

import "testing"

func strp(s string) *string { return &s }

func TestIsAuthorizedNoCredentials(t *testing.T) {
	if IsAuthorized(nil, nil, nil, nil, "123456") {
		t.Fatal("expected unauthorized when no credential is presented")
	}
}

func TestIsAuthorizedBearer(t *testing.T) {
	if !IsAuthorized(strp("Bearer 123456"), nil, nil, nil, "123456") {
		t.Fatal("expected authorized via Authorization header")
	}
}

func TestIsAuthorizedAnySource(t *testing.T) {
	cases := []struct {
		name  string
		auth  *string
		xapi  *string
		goog  *string
		query *string
	}{
		{"x-api-key", nil, strp("123456"), nil, nil},
		{"x-goog-api-key", nil, nil, strp("123456"), nil},
		{"query", nil, nil, nil, strp("123456")},
	}
	for _, c := range cases {
		if !IsAuthorized(c.auth, c.xapi, c.goog, c.query, "123456") {
			t.Fatalf("%s: expected authorized", c.name)
		}
	}
}

func TestIsAuthorizedWrongKey(t *testing.T) {
	if IsAuthorized(strp("Bearer wrong"), nil, nil, nil, "123456") {
		t.Fatal("expected unauthorized for mismatched key")
	}
}

func TestIsAuthorizedEmptyRequiredKeyNeverBypasses(t *testing.T) {
	if IsAuthorized(nil, nil, nil, nil, "") {
		t.Fatal("expected unauthorized when no credential is presented, even with an empty required key")
	}
}
