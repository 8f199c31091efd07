package ledger

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestDecodeStructuredValueRecordMap(t *testing.T) {
	raw := json.RawMessage(`{"map":[
		{"key":{"address":"CTOKENA"},"val":{"map":[
			{"key":{"symbol":"balance"},"val":{"i128":"1000000"}},
			{"key":{"symbol":"denorm"},"val":{"i128":{"hi":0,"lo":8000000}}},
			{"key":{"symbol":"index"},"val":{"u32":0}}
		]}},
		{"key":{"address":"CTOKENB"},"val":{"map":[
			{"key":{"symbol":"balance"},"val":{"i128":"2000000"}},
			{"key":{"symbol":"index"},"val":{"u32":1}}
		]}}
	]}`)

	value, err := JSONDecoder{}.DecodeStructuredValue(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	records, ok := value.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected type %T", value)
	}
	recordA, ok := records["CTOKENA"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing record for CTOKENA: %+v", records)
	}
	balance, err := AsBigInt(recordA["balance"])
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("balance mismatch: %s", balance)
	}
	denorm, err := AsBigInt(recordA["denorm"])
	if err != nil {
		t.Fatalf("denorm: %v", err)
	}
	if denorm.Cmp(big.NewInt(8_000_000)) != 0 {
		t.Fatalf("denorm mismatch: %s", denorm)
	}
}

func TestParseIntegerHiLo(t *testing.T) {
	got, err := parseInteger(tagI128, json.RawMessage(`{"hi":1,"lo":5}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(5))
	if got.Cmp(want) != 0 {
		t.Fatalf("value mismatch: %s != %s", got, want)
	}

	got, err = parseInteger(tagI128, json.RawMessage(`{"hi":-1,"lo":18446744073709551615}`))
	if err != nil {
		t.Fatalf("parse negative: %v", err)
	}
	if got.Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("negative mismatch: %s", got)
	}
}

func TestDecodeEntryKey(t *testing.T) {
	key := ContractDataKey("CPOOL", "AllRecordData", "persistent")
	name, err := JSONDecoder{}.DecodeEntryKey(key)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if name != "AllRecordData" {
		t.Fatalf("key mismatch: %s", name)
	}

	name, err = JSONDecoder{}.DecodeEntryKey(json.RawMessage(`{"symbol":"TotalShares"}`))
	if err != nil {
		t.Fatalf("decode bare symbol: %v", err)
	}
	if name != "TotalShares" {
		t.Fatalf("key mismatch: %s", name)
	}
}

func TestContractDataValue(t *testing.T) {
	raw := json.RawMessage(`{"contract_data":{"ext":"v0","contract":"CPOOL","key":{"vec":[{"symbol":"TotalShares"}]},"durability":"persistent","val":{"i128":"500000"}}}`)
	val, err := JSONDecoder{}.ContractDataValue(raw)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	decoded, err := decodeValue(val)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	shares, err := AsBigInt(decoded)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	if shares.Int64() != 500_000 {
		t.Fatalf("shares mismatch: %s", shares)
	}

	if _, err := (JSONDecoder{}).ContractDataValue(json.RawMessage(`{"account":{}}`)); err == nil {
		t.Fatalf("expected error for non contract data entry")
	}
}

func TestDecodeValueRejectsUnknownTag(t *testing.T) {
	if _, err := decodeValue(json.RawMessage(`{"duration":"5"}`)); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
	if _, err := decodeValue(json.RawMessage(`{"i128":"12x"}`)); err == nil {
		t.Fatalf("expected error for malformed integer")
	}
}

func TestI128Bounds(t *testing.T) {
	if _, err := I128(maxI128); err != nil {
		t.Fatalf("max i128 rejected: %v", err)
	}
	over := new(big.Int).Add(maxI128, big.NewInt(1))
	if _, err := I128(over); err == nil {
		t.Fatalf("expected overflow error")
	}
	encoded, err := I128(big.NewInt(-42))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(encoded) != `{"i128":"-42"}` {
		t.Fatalf("encoding mismatch: %s", encoded)
	}
}
