package aptos

import (
	"fmt"
)

// Payload variants.
const (
	PayloadScript        uint32 = 0
	PayloadModuleBundle  uint32 = 1
	PayloadEntryFunction uint32 = 2
	PayloadMultisig      uint32 = 3
)

// Payload is a transaction payload.
type Payload interface {
	Variant() uint32
	serialize(s *Serializer)
}

// ModuleID names a published module.
type ModuleID struct {
	Address AccountAddress
	Name    string
}

// EntryFunction calls a public entry function. Args are BCS-encoded.
type EntryFunction struct {
	Module   ModuleID
	Function string
	TypeArgs []TypeTag
	Args     [][]byte
}

func (*EntryFunction) Variant() uint32 { return PayloadEntryFunction }

// FunctionID returns "address::module::function".
func (e *EntryFunction) FunctionID() string {
	return fmt.Sprintf("%s::%s::%s", e.Module.Address, e.Module.Name, e.Function)
}

func (e *EntryFunction) serialize(s *Serializer) {
	s.FixedBytes(e.Module.Address[:])
	s.Str(e.Module.Name)
	s.Str(e.Function)
	serializeTags(s, e.TypeArgs)
	s.Uleb128(uint32(len(e.Args)))
	for _, a := range e.Args {
		s.WriteBytes(a)
	}
}

// ScriptArgument is a tagged script argument with its BCS value.
type ScriptArgument struct {
	Tag   uint32
	Value []byte
}

// Script runs Move bytecode.
type Script struct {
	Code     []byte
	TypeArgs []TypeTag
	Args     []ScriptArgument
}

func (*Script) Variant() uint32 { return PayloadScript }

func (sc *Script) serialize(s *Serializer) {
	s.WriteBytes(sc.Code)
	serializeTags(s, sc.TypeArgs)
	s.Uleb128(uint32(len(sc.Args)))
	for _, a := range sc.Args {
		s.Uleb128(a.Tag)
		s.FixedBytes(a.Value)
	}
}

// Multisig executes an entry function from a multisig account.
type Multisig struct {
	MultisigAddress AccountAddress
	Call            *EntryFunction
}

func (*Multisig) Variant() uint32 { return PayloadMultisig }

func (m *Multisig) serialize(s *Serializer) {
	s.FixedBytes(m.MultisigAddress[:])
	if m.Call == nil {
		s.Bool(false)
		return
	}
	s.Bool(true)
	s.Uleb128(0) // MultisigTransactionPayload::EntryFunction
	m.Call.serialize(s)
}

func serializePayload(s *Serializer, p Payload) {
	s.Uleb128(p.Variant())
	p.serialize(s)
}

func deserializePayload(d *Deserializer) Payload {
	switch v := d.Uleb128(); v {
	case PayloadScript:
		return deserializeScript(d)
	case PayloadEntryFunction:
		return deserializeEntryFunction(d)
	case PayloadMultisig:
		m := &Multisig{}
		copy(m.MultisigAddress[:], d.FixedBytes(AddressLength))
		if d.Bool() {
			if kind := d.Uleb128(); kind != 0 {
				d.fail(fmt.Errorf("bcs: unknown multisig payload %d", kind))
				return nil
			}
			m.Call = deserializeEntryFunction(d)
		}
		return m
	default:
		if d.Err() == nil {
			d.fail(fmt.Errorf("bcs: unsupported payload variant %d", v))
		}
		return nil
	}
}

func deserializeEntryFunction(d *Deserializer) *EntryFunction {
	e := &EntryFunction{}
	copy(e.Module.Address[:], d.FixedBytes(AddressLength))
	e.Module.Name = d.Str()
	e.Function = d.Str()
	e.TypeArgs = deserializeTags(d, 0)
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		e.Args = append(e.Args, d.ReadBytes())
	}
	return e
}

// script argument tags
const (
	argU8 uint32 = iota
	argU64
	argU128
	argAddress
	argU8Vector
	argBool
	argU16
	argU32
	argU256
	argSerialized
)

func deserializeScript(d *Deserializer) *Script {
	sc := &Script{Code: d.ReadBytes()}
	sc.TypeArgs = deserializeTags(d, 0)
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		tag := d.Uleb128()
		var size int
		switch tag {
		case argU8, argBool:
			size = 1
		case argU16:
			size = 2
		case argU32:
			size = 4
		case argU64:
			size = 8
		case argU128:
			size = 16
		case argU256, argAddress:
			size = 32
		case argU8Vector, argSerialized:
			start := d.off
			_ = d.ReadBytes()
			if d.Err() != nil {
				return sc
			}
			sc.Args = append(sc.Args, ScriptArgument{Tag: tag, Value: append([]byte(nil), d.buf[start:d.off]...)})
			continue
		default:
			d.fail(fmt.Errorf("bcs: unknown script argument %d", tag))
			return sc
		}
		sc.Args = append(sc.Args, ScriptArgument{Tag: tag, Value: d.FixedBytes(size)})
	}
	return sc
}
