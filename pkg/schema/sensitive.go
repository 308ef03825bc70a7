package schema

// sensitiveNames is the enumerated set of leaf names that always render as
// masked input, independent of any per-node Sensitive tag. Exact match, not
// a pattern: these are the credential-style fields the bundled template
// uses, and custom templates get the same treatment for free.
var sensitiveNames = map[string]struct{}{
	"Password":                          {},
	"Password/Code":                     {},
	"Pin/Passcode":                      {},
	"Combination/Passcode":              {},
	"Credit / Debit Card Pin":           {},
	"CCV Code":                          {},
	"SSID Password":                     {},
	"Control Panel Password":            {},
	"Mobile Banking App PIN / Passcode": {},
}

// SensitiveName reports whether a leaf name is on the masked-input
// allow-list.
func SensitiveName(name string) bool {
	_, ok := sensitiveNames[name]
	return ok
}

// SensitiveNames returns a copy of the allow-list for callers that need to
// display or document it.
func SensitiveNames() []string {
	out := make([]string, 0, len(sensitiveNames))
	for name := range sensitiveNames {
		out = append(out, name)
	}
	return out
}
