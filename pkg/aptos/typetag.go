package aptos

import (
	"fmt"
	"strings"
)

// TypeTag variants.
const (
	TypeTagBool uint32 = iota
	TypeTagU8
	TypeTagU64
	TypeTagU128
	TypeTagAddress
	TypeTagSigner
	TypeTagVector
	TypeTagStruct
	TypeTagU16
	TypeTagU32
	TypeTagU256
)

var primitiveTags = map[string]uint32{
	"bool":    TypeTagBool,
	"u8":      TypeTagU8,
	"u16":     TypeTagU16,
	"u32":     TypeTagU32,
	"u64":     TypeTagU64,
	"u128":    TypeTagU128,
	"u256":    TypeTagU256,
	"address": TypeTagAddress,
	"signer":  TypeTagSigner,
}

// StructTag names a Move struct type.
type StructTag struct {
	Address  AccountAddress
	Module   string
	Name     string
	TypeArgs []TypeTag
}

// TypeTag is a Move type. Elem is set for vectors, Struct for structs.
type TypeTag struct {
	Variant uint32
	Elem    *TypeTag
	Struct  *StructTag
}

// ParseTypeTag parses strings such as "u64", "vector<u8>" or
// "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>".
func ParseTypeTag(s string) (TypeTag, error) {
	p := &tagParser{s: strings.ReplaceAll(s, " ", "")}
	tag, err := p.parse()
	if err != nil {
		return TypeTag{}, err
	}
	if p.pos != len(p.s) {
		return TypeTag{}, fmt.Errorf("type tag %q: trailing input", s)
	}
	return tag, nil
}

type tagParser struct {
	s   string
	pos int
}

func (p *tagParser) ident() string {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '<' || c == '>' || c == ',' || c == ':' {
			break
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *tagParser) expect(tok string) error {
	if !strings.HasPrefix(p.s[p.pos:], tok) {
		return fmt.Errorf("type tag %q: expected %q at %d", p.s, tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

func (p *tagParser) args() ([]TypeTag, error) {
	if p.pos >= len(p.s) || p.s[p.pos] != '<' {
		return nil, nil
	}
	p.pos++
	var out []TypeTag
	for {
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *tagParser) parse() (TypeTag, error) {
	head := p.ident()
	if v, ok := primitiveTags[head]; ok {
		return TypeTag{Variant: v}, nil
	}
	if head == "vector" {
		args, err := p.args()
		if err != nil {
			return TypeTag{}, err
		}
		if len(args) != 1 {
			return TypeTag{}, fmt.Errorf("type tag %q: vector needs one argument", p.s)
		}
		return TypeTag{Variant: TypeTagVector, Elem: &args[0]}, nil
	}

	addr, err := ParseAddress(head)
	if err != nil {
		return TypeTag{}, fmt.Errorf("type tag %q: %w", p.s, err)
	}
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	module := p.ident()
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	name := p.ident()
	if module == "" || name == "" {
		return TypeTag{}, fmt.Errorf("type tag %q: empty module or name", p.s)
	}
	args, err := p.args()
	if err != nil {
		return TypeTag{}, err
	}
	return TypeTag{Variant: TypeTagStruct, Struct: &StructTag{Address: addr, Module: module, Name: name, TypeArgs: args}}, nil
}

// String renders the tag in Move syntax.
func (t TypeTag) String() string {
	switch t.Variant {
	case TypeTagVector:
		if t.Elem == nil {
			return "vector<?>"
		}
		return "vector<" + t.Elem.String() + ">"
	case TypeTagStruct:
		if t.Struct == nil {
			return "?"
		}
		s := fmt.Sprintf("%s::%s::%s", t.Struct.Address, t.Struct.Module, t.Struct.Name)
		if len(t.Struct.TypeArgs) > 0 {
			parts := make([]string, len(t.Struct.TypeArgs))
			for i, a := range t.Struct.TypeArgs {
				parts[i] = a.String()
			}
			s += "<" + strings.Join(parts, ", ") + ">"
		}
		return s
	default:
		for name, v := range primitiveTags {
			if v == t.Variant {
				return name
			}
		}
		return fmt.Sprintf("tag(%d)", t.Variant)
	}
}

// Serialize writes the tag.
func (t TypeTag) Serialize(s *Serializer) {
	s.Uleb128(t.Variant)
	switch t.Variant {
	case TypeTagVector:
		t.Elem.Serialize(s)
	case TypeTagStruct:
		s.FixedBytes(t.Struct.Address[:])
		s.Str(t.Struct.Module)
		s.Str(t.Struct.Name)
		serializeTags(s, t.Struct.TypeArgs)
	}
}

func serializeTags(s *Serializer, tags []TypeTag) {
	s.Uleb128(uint32(len(tags)))
	for _, a := range tags {
		a.Serialize(s)
	}
}

const maxTagDepth = 8

func deserializeTypeTag(d *Deserializer, depth int) TypeTag {
	if depth > maxTagDepth {
		d.fail(fmt.Errorf("bcs: type tag nested too deeply"))
		return TypeTag{}
	}
	t := TypeTag{Variant: d.Uleb128()}
	switch t.Variant {
	case TypeTagBool, TypeTagU8, TypeTagU16, TypeTagU32, TypeTagU64, TypeTagU128, TypeTagU256, TypeTagAddress, TypeTagSigner:
	case TypeTagVector:
		elem := deserializeTypeTag(d, depth+1)
		t.Elem = &elem
	case TypeTagStruct:
		st := &StructTag{}
		copy(st.Address[:], d.FixedBytes(AddressLength))
		st.Module = d.Str()
		st.Name = d.Str()
		st.TypeArgs = deserializeTags(d, depth+1)
		t.Struct = st
	default:
		d.fail(fmt.Errorf("bcs: unknown type tag %d", t.Variant))
	}
	return t
}

func deserializeTags(d *Deserializer, depth int) []TypeTag {
	n := d.Len()
	if d.Err() != nil {
		return nil
	}
	out := make([]TypeTag, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		out = append(out, deserializeTypeTag(d, depth))
	}
	return out
}
