package schema

type Kind int

const (
	String Kind = iota
	Number
	Boolean
	Date
	Reference
	Enum
	Document
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Reference:
		return "ref"
	case Enum:
		return "enum"
	case Document:
		return "object"
	}
	return "unknown"
}

// kindOf maps a leaf "type" string. The second result is false for unknown types.
func kindOf(typ string) (Kind, bool) {
	switch typ {
	case "string":
		return String, true
	case "number":
		return Number, true
	case "boolean":
		return Boolean, true
	case "date":
		return Date, true
	case "ref":
		return Reference, true
	}
	return String, false
}
