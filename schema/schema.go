package schema

// Kind 字段在 MongoDB 中的存储类别
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// FieldType 调用方声明的列类型
type FieldType string

const (
	FieldTypeInteger1  FieldType = "integer1"
	FieldTypeUInteger1 FieldType = "uinteger1"
	FieldTypeInteger2  FieldType = "integer2"
	FieldTypeUInteger2 FieldType = "uinteger2"
	FieldTypeInteger3  FieldType = "integer3"
	FieldTypeUInteger3 FieldType = "uinteger3"
	FieldTypeInteger4  FieldType = "integer4"
	FieldTypeUInteger4 FieldType = "uinteger4"
	FieldTypeInteger8  FieldType = "integer8"
	FieldTypeUInteger8 FieldType = "uinteger8"
	FieldTypeFloat     FieldType = "float"
	FieldTypeChar      FieldType = "char"
	FieldTypeDate      FieldType = "date"
	FieldTypeDateTime  FieldType = "datetime"
)

// Kind 将声明类型映射为存储类别。整数和浮点统一按 double 存储，
// 字符和日期类按字符串存储，其余类型视为未知
func (t FieldType) Kind() Kind {
	switch t {
	case FieldTypeInteger1, FieldTypeUInteger1,
		FieldTypeInteger2, FieldTypeUInteger2,
		FieldTypeInteger3, FieldTypeUInteger3,
		FieldTypeInteger4, FieldTypeUInteger4,
		FieldTypeInteger8, FieldTypeUInteger8,
		FieldTypeFloat:
		return KindNumeric
	case FieldTypeChar, FieldTypeDate, FieldTypeDateTime:
		return KindText
	default:
		return KindUnknown
	}
}

// Field 一个声明的字段
type Field struct {
	Name string
	Type FieldType
	Size int
}
