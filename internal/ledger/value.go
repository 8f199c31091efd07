package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Value tags of the JSON rendering of contract values.
const (
	tagBool    = "bool"
	tagVoid    = "void"
	tagU32     = "u32"
	tagI32     = "i32"
	tagU64     = "u64"
	tagI64     = "i64"
	tagU128    = "u128"
	tagI128    = "i128"
	tagBytes   = "bytes"
	tagString  = "string"
	tagSymbol  = "symbol"
	tagVec     = "vec"
	tagMap     = "map"
	tagAddress = "address"
)

var (
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Symbol encodes a symbol value.
func Symbol(name string) json.RawMessage {
	return mustTagged(tagSymbol, name)
}

// Address encodes an account or contract address value.
func Address(id string) json.RawMessage {
	return mustTagged(tagAddress, id)
}

// I128 encodes a signed 128-bit integer value.
func I128(v *big.Int) (json.RawMessage, error) {
	if v == nil {
		return nil, fmt.Errorf("i128: nil value")
	}
	if !FitsI128(v) {
		return nil, fmt.Errorf("i128 overflow: %s", v.String())
	}
	return mustTagged(tagI128, v.String()), nil
}

// Vec encodes a vector of already encoded values.
func Vec(items ...json.RawMessage) json.RawMessage {
	if items == nil {
		items = []json.RawMessage{}
	}
	return mustTagged(tagVec, items)
}

// FitsI128 reports whether v is representable as a signed 128-bit integer.
func FitsI128(v *big.Int) bool {
	return v.Cmp(minI128) >= 0 && v.Cmp(maxI128) <= 0
}

// ContractDataKey encodes the ledger key of a contract storage entry keyed by vec[symbol].
func ContractDataKey(contract, symbol, durability string) json.RawMessage {
	return mustJSON(map[string]interface{}{
		"contract_data": map[string]interface{}{
			"contract":   contract,
			"key":        Vec(Symbol(symbol)),
			"durability": durability,
		},
	})
}

// AccountKey encodes the ledger key of an account entry.
func AccountKey(id string) json.RawMessage {
	return mustJSON(map[string]interface{}{
		"account": map[string]interface{}{"account_id": id},
	})
}

func mustTagged(tag string, value interface{}) json.RawMessage {
	return mustJSON(map[string]interface{}{tag: value})
}

func mustJSON(value interface{}) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("ledger: marshal %T: %v", value, err))
	}
	return data
}

// JSONDecoder interprets the JSON rendering of ledger keys and values.
type JSONDecoder struct{}

// DecodeStructuredValue converts a tagged value into native Go values:
// integers become *big.Int, vectors []interface{}, maps map[string]interface{}.
func (JSONDecoder) DecodeStructuredValue(raw json.RawMessage) (interface{}, error) {
	return decodeValue(raw)
}

// DecodeEntryKey returns the symbol naming a contract data entry. It accepts the
// entry's data or key rendering as well as a bare vec[symbol] value.
func (d JSONDecoder) DecodeEntryKey(raw json.RawMessage) (string, error) {
	if contractData, ok, err := unwrapContractData(raw); err != nil {
		return "", err
	} else if ok {
		raw = contractData.Key
	}

	value, err := decodeValue(raw)
	if err != nil {
		return "", fmt.Errorf("decode entry key: %w", err)
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case []interface{}:
		if len(v) == 0 {
			return "", fmt.Errorf("decode entry key: empty vec")
		}
		name, ok := v[0].(string)
		if !ok {
			return "", fmt.Errorf("decode entry key: unexpected element %T", v[0])
		}
		return name, nil
	default:
		return "", fmt.Errorf("decode entry key: unexpected value %T", value)
	}
}

// ContractDataValue returns the stored value of a contract data entry.
func (JSONDecoder) ContractDataValue(raw json.RawMessage) (json.RawMessage, error) {
	contractData, ok, err := unwrapContractData(raw)
	if err != nil {
		return nil, err
	}
	if !ok || len(contractData.Val) == 0 {
		return nil, fmt.Errorf("entry is not contract data")
	}
	return contractData.Val, nil
}

type contractDataJSON struct {
	Contract   string          `json:"contract"`
	Key        json.RawMessage `json:"key"`
	Durability string          `json:"durability"`
	Val        json.RawMessage `json:"val"`
}

func unwrapContractData(raw json.RawMessage) (contractDataJSON, bool, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return contractDataJSON{}, false, nil
	}
	inner, ok := wrapper["contract_data"]
	if !ok {
		return contractDataJSON{}, false, nil
	}
	var cd contractDataJSON
	if err := json.Unmarshal(inner, &cd); err != nil {
		return contractDataJSON{}, false, fmt.Errorf("parse contract data: %w", err)
	}
	return cd, true, nil
}

func decodeValue(raw json.RawMessage) (interface{}, error) {
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		if bare == tagVoid {
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported bare value %q", bare)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("expected a single tag, got %d", len(tagged))
	}

	for tag, body := range tagged {
		switch tag {
		case tagBool:
			var b bool
			if err := json.Unmarshal(body, &b); err != nil {
				return nil, fmt.Errorf("parse bool: %w", err)
			}
			return b, nil
		case tagVoid:
			return nil, nil
		case tagU32, tagI32, tagU64, tagI64, tagU128, tagI128:
			return parseInteger(tag, body)
		case tagBytes:
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, fmt.Errorf("parse bytes: %w", err)
			}
			data, err := hex.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("parse bytes: %w", err)
			}
			return data, nil
		case tagString, tagSymbol, tagAddress:
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, fmt.Errorf("parse %s: %w", tag, err)
			}
			return s, nil
		case tagVec:
			var items []json.RawMessage
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, fmt.Errorf("parse vec: %w", err)
			}
			out := make([]interface{}, 0, len(items))
			for i, item := range items {
				v, err := decodeValue(item)
				if err != nil {
					return nil, fmt.Errorf("vec[%d]: %w", i, err)
				}
				out = append(out, v)
			}
			return out, nil
		case tagMap:
			return decodeMap(body)
		default:
			return nil, fmt.Errorf("unsupported value tag %q", tag)
		}
	}
	return nil, fmt.Errorf("empty value")
}

func decodeMap(body json.RawMessage) (interface{}, error) {
	var pairs []struct {
		Key json.RawMessage `json:"key"`
		Val json.RawMessage `json:"val"`
	}
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, err := decodeValue(pair.Key)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		val, err := decodeValue(pair.Val)
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		out[mapKey(key)] = val
	}
	return out, nil
}

func mapKey(key interface{}) string {
	switch k := key.(type) {
	case string:
		return k
	case *big.Int:
		return k.String()
	default:
		return fmt.Sprintf("%v", k)
	}
}

// parseInteger accepts decimal strings, JSON numbers and {hi, lo} parts.
func parseInteger(tag string, body json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
		if !ok {
			return nil, fmt.Errorf("parse %s: invalid integer %q", tag, s)
		}
		return v, nil
	}

	var n json.Number
	if err := json.Unmarshal(body, &n); err == nil {
		v, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return nil, fmt.Errorf("parse %s: invalid integer %s", tag, n)
		}
		return v, nil
	}

	var parts struct {
		Hi json.Number `json:"hi"`
		Lo json.Number `json:"lo"`
	}
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", tag, err)
	}
	hi, ok := new(big.Int).SetString(parts.Hi.String(), 10)
	if !ok {
		return nil, fmt.Errorf("parse %s: invalid hi part %s", tag, parts.Hi)
	}
	lo, err := strconv.ParseUint(parts.Lo.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: invalid lo part: %w", tag, err)
	}
	v := new(big.Int).Lsh(hi, 64)
	return v.Add(v, new(big.Int).SetUint64(lo)), nil
}

// AsBigInt converts a decoded native value into a *big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case string:
		parsed, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
