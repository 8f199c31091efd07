package main

import (
	"bytes"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"lpdeposit/internal/config"
	"lpdeposit/internal/model"
)

func TestParseAmounts(t *testing.T) {
	got, err := parseAmounts(config.Config{Shares: "1.25", Slippage: "1", QuoteWeight: "0.2"})
	if err != nil {
		t.Fatalf("parseAmounts: %v", err)
	}
	if got.Shares.Cmp(big.NewInt(12_500_000)) != 0 {
		t.Fatalf("shares mismatch: %s", got.Shares)
	}
	if got.Slippage.String() != "0.01" {
		t.Fatalf("slippage mismatch: %s", got.Slippage)
	}
	if got.QuoteWeight.String() != "0.2" {
		t.Fatalf("quote weight mismatch: %s", got.QuoteWeight)
	}
}

func TestParseAmountsRejectsBadInput(t *testing.T) {
	cases := []config.Config{
		{Slippage: "1"},
		{Shares: "abc", Slippage: "1"},
		{Shares: "1", Slippage: "one"},
		{Shares: "1", Slippage: "1", QuoteWeight: "x"},
	}
	for i, cfg := range cases {
		if _, err := parseAmounts(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestResolvePoolFromAddressBook(t *testing.T) {
	dir := t.TempDir()
	book := `{"ids":{"comet":"CPOOL","BLND":"CBLND","USDC":"CUSDC"}}`
	if err := os.WriteFile(filepath.Join(dir, "testnet.contracts.json"), []byte(book), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	got, err := resolvePool(config.Config{Network: "testnet", AddressBookDir: dir, AssetB: "COVERRIDE"})
	if err != nil {
		t.Fatalf("resolvePool: %v", err)
	}
	want := poolTarget{PoolID: "CPOOL", AssetAID: "CBLND", AssetBID: "COVERRIDE"}
	if got != want {
		t.Fatalf("target mismatch: %+v", got)
	}
}

func TestResolvePoolExplicitSkipsBook(t *testing.T) {
	got, err := resolvePool(config.Config{Network: "testnet", AddressBookDir: t.TempDir(), Pool: "P", AssetA: "A", AssetB: "B"})
	if err != nil {
		t.Fatalf("resolvePool: %v", err)
	}
	if got.PoolID != "P" || got.AssetAID != "A" || got.AssetBID != "B" {
		t.Fatalf("target mismatch: %+v", got)
	}
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"":                                "",
		"postgres://user:pw@db:5432/lp":   "postgres://***@db:5432/lp",
		"redis://localhost:6379/0":        "redis://localhost:6379/0",
		"host=db user=lp password=secret": "***",
	}
	for in, want := range cases {
		if got := redactURL(in); got != want {
			t.Fatalf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	if err := report(cmd, model.Outcome{Kind: model.OutcomeSucceeded, Hash: "abc"}); err != nil {
		t.Fatalf("success should not error: %v", err)
	}
	if !strings.Contains(out.String(), "abc") {
		t.Fatalf("missing hash: %q", out.String())
	}

	out.Reset()
	err := report(cmd, model.Outcome{
		Kind:    model.OutcomeFailed,
		Hash:    "def",
		Err:     errors.New("limit exceeded"),
		Failure: &model.StructuredError{Kind: model.KindLimitExceeded, RawCode: 13},
	})
	if err == nil {
		t.Fatalf("failure should error")
	}
	if !strings.Contains(out.String(), "code 13") {
		t.Fatalf("missing failure detail: %q", out.String())
	}
}
