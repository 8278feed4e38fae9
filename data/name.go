package data

// MaxNameLength is the longest accepted handle in bytes.
const MaxNameLength = 100

// ValidName reports whether name is 1-100 bytes, starts with an ASCII letter
// and continues with ASCII letters, digits or underscores.
func ValidName(name string) bool {
	if len(name) < 1 || len(name) > MaxNameLength {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '_'):
		default:
			return false
		}
	}
	return true
}
