package mailboxsvc

import (
	"testing"

	"github.com/emersion/go-message/mail"

	"github.com/richyfesta/arnoma/core"
)

func Test_extractAmount(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOk bool
	}{
		{"dollar sign", "You received $150.00 from John", 150, true},
		{"dollar sign with space", "Zelle payment of $ 80.00 received", 80, true},
		{"bare integer", "paid 200 for November", 200, true},
		{"no amount", "thanks for the class!", 0, false},
		{"zero amount", "received $0.00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractAmount(tt.text)
			if ok != tt.wantOk {
				t.Fatalf("extractAmount() ok = %v; want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("extractAmount() = %v; want %v", got, tt.want)
			}
		})
	}
}

func Test_payerFromAddress(t *testing.T) {
	tests := []struct {
		name string
		addr *mail.Address
		want string
	}{
		{"display name", &mail.Address{Name: "Anna Petrosyan", Address: "anna@example.com"}, "Anna Petrosyan"},
		{"no display name", &mail.Address{Address: "anna.petrosyan@example.com"}, "anna.petrosyan"},
		{"blank display name", &mail.Address{Name: "  ", Address: "anna@example.com"}, "anna"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := payerFromAddress(tt.addr); got != tt.want {
				t.Errorf("payerFromAddress() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestWatcher_matchesKeywords(t *testing.T) {
	w := &Watcher{conf: &core.Config{}, keywords: []string{"payment", "zelle", "paid"}}

	tests := []struct {
		name    string
		subject string
		body    string
		want    bool
	}{
		{"subject hit", "Zelle payment received", "", true},
		{"body hit", "FYI", "John paid you $100", true},
		{"case insensitive", "PAYMENT CONFIRMATION", "", true},
		{"no hit", "Class schedule update", "see you Monday", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.matchesKeywords(tt.subject, tt.body); got != tt.want {
				t.Errorf("matchesKeywords(%q, %q) = %v; want %v", tt.subject, tt.body, got, tt.want)
			}
		})
	}
}
