package registry

// Vars holds processed request values: strings, booleans, or slices of either.
type Vars map[string]any

// Has reports whether name was supplied.
func (vars Vars) Has(name string) bool {
	_, found := vars[name]
	return found
}

// String returns a single-valued string parameter.
func (vars Vars) String(name string) string {
	value, _ := vars[name].(string)
	return value
}

// Bool returns a boolean parameter, false when absent.
func (vars Vars) Bool(name string) bool {
	value, _ := vars[name].(bool)
	return value
}

// Strings returns a multivalue string parameter; a single string is returned as one entry.
func (vars Vars) Strings(name string) []string {
	switch value := vars[name].(type) {
	case []string:
		return append([]string{}, value...)
	case string:
		return []string{value}
	default:
		return nil
	}
}

// Bools returns a multivalue boolean parameter.
func (vars Vars) Bools(name string) []bool {
	switch value := vars[name].(type) {
	case []bool:
		return append([]bool{}, value...)
	case bool:
		return []bool{value}
	default:
		return nil
	}
}
