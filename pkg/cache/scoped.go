package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	// Isolate a staging server from production
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for API response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// RecipeKey generates a prefixed key for recipe caching.
func (k *ScopedKeyer) RecipeKey(identifier string) string {
	return k.prefix + k.inner.RecipeKey(identifier)
}
