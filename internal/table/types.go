package table

// Type identifies the declared data type of a column. Integer widths share a
// single runtime representation (int64); the declared type still matters for
// cast overflow checks and schema comparison.
type Type string

const (
	TypeInt8     Type = "Int8"
	TypeInt16    Type = "Int16"
	TypeInt32    Type = "Int32"
	TypeInt64    Type = "Int64"
	TypeUInt8    Type = "UInt8"
	TypeUInt16   Type = "UInt16"
	TypeUInt32   Type = "UInt32"
	TypeUInt64   Type = "UInt64"
	TypeFloat32  Type = "Float32"
	TypeFloat64  Type = "Float64"
	TypeBoolean  Type = "Boolean"
	TypeString   Type = "String"
	TypeDate     Type = "Date"
	TypeDatetime Type = "Datetime"
	TypeTime     Type = "Time"
	TypeStruct   Type = "Struct"
)

// ParseType maps a type name from a workflow document to a Type. Names are
// accepted in the document's spelling (Int32) and in lower_snake (int32).
func ParseType(name string) (Type, bool) {
	switch name {
	case "Int8", "int8":
		return TypeInt8, true
	case "Int16", "int16":
		return TypeInt16, true
	case "Int32", "int32":
		return TypeInt32, true
	case "Int64", "int64", "Int", "int", "long":
		return TypeInt64, true
	case "UInt8", "uint8":
		return TypeUInt8, true
	case "UInt16", "uint16":
		return TypeUInt16, true
	case "UInt32", "uint32":
		return TypeUInt32, true
	case "UInt64", "uint64":
		return TypeUInt64, true
	case "Float32", "float32", "float":
		return TypeFloat32, true
	case "Float64", "float64", "double":
		return TypeFloat64, true
	case "Boolean", "boolean", "Bool", "bool":
		return TypeBoolean, true
	case "String", "string", "str", "Utf8", "utf8":
		return TypeString, true
	case "Date", "date":
		return TypeDate, true
	case "Datetime", "datetime":
		return TypeDatetime, true
	case "Time", "time":
		return TypeTime, true
	case "Struct", "struct":
		return TypeStruct, true
	}
	return "", false
}

// IsInteger reports whether t is one of the fixed-width integer types.
func (t Type) IsInteger() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	switch t {
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// IsNumeric reports whether t is an integer or float type.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsTemporal reports whether t is a date, datetime or time type.
func (t Type) IsTemporal() bool {
	return t == TypeDate || t == TypeDatetime || t == TypeTime
}

// IntegerRange returns the inclusive value range of an integer type.
// UInt64 values above math.MaxInt64 are not representable by the runtime cell
// type and are treated as out of range.
func (t Type) IntegerRange() (min int64, max int64, ok bool) {
	switch t {
	case TypeInt8:
		return -128, 127, true
	case TypeInt16:
		return -32768, 32767, true
	case TypeInt32:
		return -2147483648, 2147483647, true
	case TypeInt64:
		return -9223372036854775808, 9223372036854775807, true
	case TypeUInt8:
		return 0, 255, true
	case TypeUInt16:
		return 0, 65535, true
	case TypeUInt32:
		return 0, 4294967295, true
	case TypeUInt64:
		return 0, 9223372036854775807, true
	}
	return 0, 0, false
}

// Promote returns the common type two numeric types widen to when combined by
// an arithmetic or concatenation operation. Non-numeric inputs only promote
// to themselves.
func Promote(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return "", false
	}
	if a.IsFloat() || b.IsFloat() {
		if a == TypeFloat64 || b == TypeFloat64 {
			return TypeFloat64, true
		}
		// Float32 combined with any integer widens to Float64.
		if a.IsInteger() || b.IsInteger() {
			return TypeFloat64, true
		}
		return TypeFloat32, true
	}
	// Both integers: pick the wider, preferring signed on a signedness mix.
	if intRank(a) >= intRank(b) {
		if a.IsUnsigned() && !b.IsUnsigned() {
			return signedFor(a), true
		}
		return a, true
	}
	if b.IsUnsigned() && !a.IsUnsigned() {
		return signedFor(b), true
	}
	return b, true
}

func intRank(t Type) int {
	switch t {
	case TypeInt8, TypeUInt8:
		return 1
	case TypeInt16, TypeUInt16:
		return 2
	case TypeInt32, TypeUInt32:
		return 3
	case TypeInt64, TypeUInt64:
		return 4
	}
	return 0
}

func signedFor(t Type) Type {
	switch t {
	case TypeUInt8:
		return TypeInt16
	case TypeUInt16:
		return TypeInt32
	case TypeUInt32, TypeUInt64:
		return TypeInt64
	}
	return t
}
