package output

// Translator renders user-facing messages (errors, notices) for a locale.
type Translator interface {
	// T renders message key; data fills template placeholders and may be nil.
	// Unknown keys come back unchanged.
	T(locale, key string, data map[string]any) string
}
