package schema

// Option is a single entry in a blueprint option schema.
type Option struct {
	// Name is the option name as declared in the schema document.
	Name string `json:"name"`

	// Default is the fixed value for scalar options. Empty for axes.
	Default string `json:"default,omitempty"`

	// Choices lists the allowed values for list-valued options. A non-empty
	// Choices marks the option as a combinatorial axis; its first entry is
	// the default.
	Choices []string `json:"choices,omitempty"`
}

// IsAxis reports whether the option contributes to the configuration
// cross-product.
func (o Option) IsAxis() bool {
	return len(o.Choices) > 0
}

// Schema is an ordered blueprint option schema.
type Schema struct {
	// Options holds all entries in declaration order.
	Options []Option `json:"options"`
}

// Configuration is one fully resolved selection across all options.
// It is created by the enumerator (or by hand for single generations),
// consumed once by the instantiator, then discarded.
type Configuration map[string]string

// Axes returns the list-valued options in declaration order.
func (s *Schema) Axes() []Option {
	var axes []Option
	for _, o := range s.Options {
		if o.IsAxis() {
			axes = append(axes, o)
		}
	}
	return axes
}

// Option returns the named option and whether it exists.
func (s *Schema) Option(name string) (Option, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Defaults returns the configuration obtained by taking every scalar value
// and the first choice of every axis.
func (s *Schema) Defaults() Configuration {
	cfg := make(Configuration, len(s.Options))
	for _, o := range s.Options {
		if o.IsAxis() {
			cfg[o.Name] = o.Choices[0]
			continue
		}
		cfg[o.Name] = o.Default
	}
	return cfg
}

// Resolve merges a partial selection over the schema defaults, producing a
// complete configuration. Extra keys in the selection are carried through
// unchanged so callers can inject constants such as a generated env name.
func (s *Schema) Resolve(selection Configuration) Configuration {
	cfg := s.Defaults()
	for k, v := range selection {
		cfg[k] = v
	}
	return cfg
}
