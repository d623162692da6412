// Package nbt reads the stringified NBT payloads that servers print in reply
// to data queries and pretty-prints them for the console.
package nbt

// Value is one of Compound, List, Number or String.
type Value interface {
	nbtValue()
}

// Field is one key of a Compound.
type Field struct {
	Key   string
	Value Value
}

// Compound keeps its fields in source order.
type Compound []Field

// Get returns the value stored under key.
func (c Compound) Get(key string) (Value, bool) {
	for _, f := range c {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// List is a list or, when ArrayType is set (B, I or L), a typed array.
type List struct {
	ArrayType string
	Items     []Value
}

// Number keeps the literal text, type suffix included (1b, 2.5f, 300L).
type Number string

// String is an unquoted string value.
type String string

func (Compound) nbtValue() {}
func (List) nbtValue()     {}
func (Number) nbtValue()   {}
func (String) nbtValue()   {}
