package utils

// MakeMap builds a map[string]string from alternating keys and values,
// as used for Sentry tags. A trailing key without a value is ignored.
func MakeMap(pairs ...string) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}
