package config

import "fmt"

// ConfigError reports an override value whose type contradicts the schema
// declaration for a recognized key. It is fatal: the invocation aborts
// before any network call.
type ConfigError struct {
	Key      string
	Expected Kind
	Value    interface{}
	Layer    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s layer sets %q to %v (%T), expected %s",
		e.Layer, e.Key, e.Value, e.Value, e.Expected)
}
