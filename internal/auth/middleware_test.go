package auth

import (
	"net/http"
	"testing"
)

func TestExtractKey(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"x-api-key", map[string]string{"X-API-Key": "lmg_abc"}, "lmg_abc"},
		{"bearer", map[string]string{"Authorization": "Bearer lmg_abc"}, "lmg_abc"},
		{"lowercase bearer", map[string]string{"Authorization": "bearer lmg_abc"}, "lmg_abc"},
		{"none", map[string]string{}, ""},
		{"x-api-key wins over bearer", map[string]string{"X-API-Key": "a", "Authorization": "Bearer b"}, "a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := extractKey(r); got != tc.want {
				t.Fatalf("extractKey() = %q, want %q", got, tc.want)
			}
		})
	}
}
