package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// wireValue is the tagged on-the-wire encoding for a Value, used by
// Entity's JSON (de)serialization. Kind selects which field carries the
// payload.
type wireValue struct {
	Kind string      `json:"k"`
	Str  string      `json:"s,omitempty"`
	Int  int32       `json:"i,omitempty"`
	Bool bool        `json:"b,omitempty"`
	List []wireValue `json:"l,omitempty"`
}

const (
	wireString     = "s"
	wireInt        = "i"
	wireBigInt     = "bi"
	wireBool       = "bo"
	wireBytes      = "by"
	wireBigDecimal = "bd"
	wireList       = "l"
	wireNull       = "n"
)

func encodeValue(v Value) (wireValue, error) {
	switch x := v.(type) {
	case StringVal:
		return wireValue{Kind: wireString, Str: string(x)}, nil
	case IntVal:
		return wireValue{Kind: wireInt, Int: int32(x)}, nil
	case BigIntVal:
		s := "0"
		if x.Int != nil {
			s = x.Int.String()
		}
		return wireValue{Kind: wireBigInt, Str: s}, nil
	case BoolVal:
		return wireValue{Kind: wireBool, Bool: bool(x)}, nil
	case BytesVal:
		return wireValue{Kind: wireBytes, Str: hex.EncodeToString(x)}, nil
	case BigDecimalVal:
		s := "0"
		var prec int32
		if x.Float != nil {
			s = x.Float.Text('g', -1)
			prec = int32(x.Float.Prec())
		}
		return wireValue{Kind: wireBigDecimal, Str: s, Int: prec}, nil
	case ListVal:
		items := make([]wireValue, len(x))
		for i, e := range x {
			wv, err := encodeValue(e)
			if err != nil {
				return wireValue{}, err
			}
			items[i] = wv
		}
		return wireValue{Kind: wireList, List: items}, nil
	case nullVal:
		return wireValue{Kind: wireNull}, nil
	default:
		return wireValue{}, fmt.Errorf("types: unknown value type %T", v)
	}
}

func decodeValue(wv wireValue) (Value, error) {
	switch wv.Kind {
	case wireString:
		return StringVal(wv.Str), nil
	case wireInt:
		return IntVal(wv.Int), nil
	case wireBigInt:
		i, ok := new(big.Int).SetString(wv.Str, 10)
		if !ok {
			return nil, fmt.Errorf("types: invalid big integer %q", wv.Str)
		}
		return BigIntVal{i}, nil
	case wireBool:
		return BoolVal(wv.Bool), nil
	case wireBytes:
		b, err := hex.DecodeString(wv.Str)
		if err != nil {
			return nil, fmt.Errorf("types: invalid hex bytes %q: %w", wv.Str, err)
		}
		return BytesVal(b), nil
	case wireBigDecimal:
		prec := uint(200)
		if wv.Int > 0 {
			prec = uint(wv.Int)
		}
		f, _, err := big.ParseFloat(wv.Str, 10, prec, big.ToNearestEven)
		if err != nil {
			return nil, fmt.Errorf("types: invalid big decimal %q: %w", wv.Str, err)
		}
		return BigDecimalVal{f}, nil
	case wireList:
		items := make(ListVal, len(wv.List))
		for i, e := range wv.List {
			v, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case wireNull:
		return Null, nil
	default:
		return nil, fmt.Errorf("types: unknown wire value kind %q", wv.Kind)
	}
}

// MarshalJSON implements a tagged encoding for Entity so the scalar
// union round-trips without losing its type (a plain
// map[string]interface{} would turn a BigInt into a float64).
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]wireValue, len(e))
	for k, v := range e {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = wv
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]wireValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Entity, len(raw))
	for k, wv := range raw {
		v, err := decodeValue(wv)
		if err != nil {
			return err
		}
		out[k] = v
	}
	*e = out
	return nil
}
