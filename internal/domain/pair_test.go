package domain

import "testing"

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    TradingPair
		wantErr bool
	}{
		{in: "BTC/USDT", want: TradingPair{Base: "BTC", Quote: "USDT"}},
		{in: " eth/usdt ", want: TradingPair{Base: "ETH", Quote: "USDT"}},
		{in: "BTCUSDT", wantErr: true},
		{in: "/USDT", wantErr: true},
		{in: "BTC/", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePair(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePair(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePair(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePair(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTradingPairString(t *testing.T) {
	p := NewTradingPair("sol", "usdt")
	if got := p.String(); got != "SOL/USDT" {
		t.Errorf("String() = %q, want SOL/USDT", got)
	}
}

func TestTradingPairLess(t *testing.T) {
	a := NewTradingPair("ADA", "USDT")
	b := NewTradingPair("BTC", "USDT")
	c := NewTradingPair("BTC", "USDC")
	if !a.Less(b) {
		t.Error("ADA/USDT should sort before BTC/USDT")
	}
	if !c.Less(b) {
		t.Error("BTC/USDC should sort before BTC/USDT")
	}
	if b.Less(b) {
		t.Error("pair should not sort before itself")
	}
}
