package cmd

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nicolasacchi/vmcli/internal/api"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"12.50", "12.5", false},
		{"$7", "7", false},
		{" 0.01 ", "0.01", false},
		{"0", "", true},
		{"-5", "", true},
		{"1.005", "", true},
		{"ten", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestAudienceFlag(t *testing.T) {
	var f audienceFlag
	if err := f.Set("Friends"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.value != api.AudienceFriends {
		t.Errorf("value = %q, want friends", f.value)
	}
	if err := f.Set("everyone"); err == nil {
		t.Error("expected error for invalid audience")
	}
}

func TestCallbackPort(t *testing.T) {
	tests := []struct {
		redirect string
		want     int
	}{
		{"", 18272},
		{"http://localhost:9000/callback", 9000},
		{"https://example.com/venmo", 18272},
		{"::bad", 18272},
	}
	for _, tt := range tests {
		if got := callbackPort(tt.redirect); got != tt.want {
			t.Errorf("callbackPort(%q) = %d, want %d", tt.redirect, got, tt.want)
		}
	}
}

func TestMask(t *testing.T) {
	if got := mask("abcdefgh"); got != "****efgh" {
		t.Errorf("mask = %q", got)
	}
	if got := mask("abc"); got != "***" {
		t.Errorf("mask short = %q", got)
	}
}

func TestAnnotate(t *testing.T) {
	me := api.User{ID: "1", DisplayName: "Me"}
	bob := api.User{ID: "2", DisplayName: "Bob"}
	txns := []api.Transaction{
		{ID: "a", Action: "pay", Amount: decimal.NewFromInt(10), Actor: me, Target: api.Target{Type: "user", User: &bob}},
		{ID: "b", Action: "charge", Amount: decimal.NewFromInt(4), Actor: bob, Target: api.Target{Type: "user", User: &me}},
		{ID: "c", Action: "pay", Amount: decimal.NewFromInt(3), Actor: me, Target: api.Target{Type: "email", Email: "x@example.com"}},
	}

	got := annotate(me.ID, txns)
	want := []struct {
		dir    api.Direction
		signed string
		with   string
	}{
		{api.DirectionUserPay, "-10", "Bob"},
		{api.DirectionOtherCharge, "-4", "Bob"},
		{api.DirectionUserPay, "-3", "x@example.com"},
	}
	for i, w := range want {
		if got[i].Direction != w.dir || !got[i].SignedAmount.Equal(decimal.RequireFromString(w.signed)) || got[i].Counterparty != w.with {
			t.Errorf("annotate[%d] = %s %s %q, want %s %s %q", i, got[i].Direction, got[i].SignedAmount, got[i].Counterparty, w.dir, w.signed, w.with)
		}
	}
}

func TestFilterFriends(t *testing.T) {
	friends := []api.User{
		{Username: "bob-smith", DisplayName: "Bob Smith"},
		{Username: "carol", DisplayName: "Carol Bobson"},
		{Username: "dave", DisplayName: "Dave"},
	}
	got := filterFriends(friends, "BOB")
	if len(got) != 2 {
		t.Fatalf("filterFriends = %d entries, want 2", len(got))
	}
	if got := filterFriends(friends, "zzz"); got == nil || len(got) != 0 {
		t.Errorf("no match should return an empty, non-nil slice")
	}
}
