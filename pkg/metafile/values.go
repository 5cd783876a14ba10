package metafile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// valueDescriptor is the on-disk shape of one typed property or attribute
// value in a .meta.json sidecar: a type tag plus its JSON-encoded payload,
// per spec §3 ("ordered map of name → typed value descriptor").
type valueDescriptor struct {
	Type  string          `json:"Type"`
	Value json.RawMessage `json:"Value"`
}

func encodeVariant(value dom.Variant) (valueDescriptor, error) {
	switch value.Kind {
	case dom.VariantKindBool:
		return marshalDescriptor("Bool", value.Bool)
	case dom.VariantKindInt64:
		return marshalDescriptor("Int64", value.Int64)
	case dom.VariantKindFloat64:
		return marshalDescriptor("Float64", value.Float64)
	case dom.VariantKindString:
		return marshalDescriptor("String", value.String)
	case dom.VariantKindVector3:
		return marshalDescriptor("Vector3", value.Vector3)
	case dom.VariantKindColor3:
		return marshalDescriptor("Color3", value.Color3)
	case dom.VariantKindUDim2:
		return marshalDescriptor("UDim2", value.UDim2)
	case dom.VariantKindRef:
		return marshalDescriptor("Ref", value.Ref.String())
	case dom.VariantKindStringArray:
		return marshalDescriptor("StringArray", value.StringList)
	default:
		return valueDescriptor{}, fmt.Errorf("%w: cannot encode variant kind %d in meta file", rojoerrors.ErrUnresolvedValue, value.Kind)
	}
}

func marshalDescriptor(kind string, payload any) (valueDescriptor, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return valueDescriptor{}, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	return valueDescriptor{Type: kind, Value: raw}, nil
}

func decodeVariant(descriptor valueDescriptor) (dom.Variant, error) {
	switch descriptor.Type {
	case "Bool":
		var v bool
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.NewBool(v), nil
	case "Int64":
		var v int64
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.NewInt64(v), nil
	case "Float64":
		var v float64
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.NewFloat64(v), nil
	case "String":
		var v string
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.NewString(v), nil
	case "Vector3":
		var v dom.Vector3
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.Variant{Kind: dom.VariantKindVector3, Vector3: v}, nil
	case "Color3":
		var v dom.Color3
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.Variant{Kind: dom.VariantKindColor3, Color3: v}, nil
	case "UDim2":
		var v dom.UDim2
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.Variant{Kind: dom.VariantKindUDim2, UDim2: v}, nil
	case "Ref":
		var v string
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		ref, err := dom.ParseReferent(v)
		if err != nil {
			return dom.Nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
		}
		return dom.NewRef(ref), nil
	case "StringArray":
		var v []string
		if err := json.Unmarshal(descriptor.Value, &v); err != nil {
			return dom.Nil, wrapDecodeErr(err)
		}
		return dom.NewStringList(v), nil
	default:
		return dom.Nil, fmt.Errorf("%w: unknown value descriptor type %q", rojoerrors.ErrDecode, descriptor.Type)
	}
}

func wrapDecodeErr(err error) error {
	return fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
}

// orderedValues is a name→Variant map that remembers insertion order, used
// for both the "properties" and "attributes" sidecar fields so key order
// round-trips through parse/write (spec §3: "preserving key insertion
// order").
type orderedValues struct {
	keys   []string
	values map[string]dom.Variant
}

func newOrderedValues() *orderedValues {
	return &orderedValues{values: make(map[string]dom.Variant)}
}

func (o *orderedValues) Set(key string, value dom.Variant) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *orderedValues) Delete(key string) {
	if _, exists := o.values[key]; !exists {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *orderedValues) Get(key string) (dom.Variant, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *orderedValues) Keys() []string {
	return o.keys
}

func (o *orderedValues) Len() int {
	return len(o.keys)
}

func (o *orderedValues) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buffer.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buffer.Write(keyJSON)
		buffer.WriteByte(':')
		descriptor, err := encodeVariant(o.values[key])
		if err != nil {
			return nil, err
		}
		descriptorJSON, err := json.Marshal(descriptor)
		if err != nil {
			return nil, err
		}
		buffer.Write(descriptorJSON)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

func (o *orderedValues) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected object for ordered value map", rojoerrors.ErrDecode)
	}

	o.keys = nil
	o.values = make(map[string]dom.Variant)

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("%w: expected string key in ordered value map", rojoerrors.ErrDecode)
		}

		var descriptor valueDescriptor
		if err := decoder.Decode(&descriptor); err != nil {
			return err
		}
		value, err := decodeVariant(descriptor)
		if err != nil {
			return err
		}
		o.Set(key, value)
	}

	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}
