package registry

// Args holds the arguments of a validated instruction, already converted to
// the declared parameter types: float64 for number, int64 for integer and
// string for string.
type Args map[string]interface{}

// Float returns a number argument.
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Int returns an integer argument.
func (a Args) Int(name string) int64 {
	switch v := a[name].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// String returns a string argument.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}
