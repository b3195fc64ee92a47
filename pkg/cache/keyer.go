package cache

// Keyer builds cache keys. Keys embed a format version so entries written by
// an incompatible release are never read back.
type Keyer interface {
	// HTTPKey returns the key for a cached API response.
	HTTPKey(namespace, key string) string
	// RecipeKey returns the key for a complete recipe.
	RecipeKey(identifier string) string
}

const recipeFormat = "v1"

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// RecipeKey returns "recipe:<format>:<identifier>".
func (DefaultKeyer) RecipeKey(identifier string) string {
	return "recipe:" + recipeFormat + ":" + identifier
}
