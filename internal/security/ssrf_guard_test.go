package security

import (
	"testing"
	"time"
)

func TestValidateURL_AllowsPublicURLs(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"https://example.com/avatar.png",
		"http://example.com/",
		"https://media.licdn.com/dms/image/abc",
		"https://93.184.216.34/image.png",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateURL_BlocksDangerousURLs(t *testing.T) {
	g := NewSSRFGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"ループバックIP", "http://127.0.0.1/admin"},
		{"localhost", "http://localhost:8080/"},
		{"プライベートIP 10.x", "http://10.0.0.5/"},
		{"プライベートIP 192.168.x", "http://192.168.1.1/"},
		{"プライベートIP 172.16.x", "http://172.16.0.1/"},
		{"クラウドメタデータIP", "http://169.254.169.254/latest/meta-data/"},
		{"fileスキーム", "file:///etc/passwd"},
		{"javascriptスキーム", "javascript:alert(1)"},
		{"ftpスキーム", "ftp://example.com/"},
		{"IPv6ループバック", "http://[::1]/"},
		{"ホストなし", "https:///path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.url)
			}
		})
	}
}

func TestNewSafeClient_ReturnsClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestSSRFGuard_ImplementsInterface(t *testing.T) {
	var _ SSRFGuardService = NewSSRFGuard()
}
