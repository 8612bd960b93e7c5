package registry

// Args is the raw tool input, keyed by parameter name. Getters mirror the
// accessor style of mcp-go's CallToolRequest so handlers read the same way
// whether a call arrives from the agent loop or over MCP.
type Args map[string]any

// String returns the named string argument, or def when absent or of the
// wrong type.
func (a Args) String(key, def string) string {
	v, ok := a[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Int returns the named integer argument. JSON decoding yields float64, so
// both are accepted.
func (a Args) Int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// Map returns the named object argument, or nil when absent.
func (a Args) Map(key string) map[string]any {
	v, ok := a[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}
