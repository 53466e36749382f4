package domain

// ReferenceCatalog is the read-only lookup service over canonical test definitions.
type ReferenceCatalog interface {
	// Lookup finds an entry by canonical name, ignoring case and spacing.
	Lookup(canonicalName string) (CatalogEntry, bool)
	// LookupAlias finds the entry owning an alias, ignoring case and spacing.
	LookupAlias(alias string) (CatalogEntry, bool)
	// Entries returns every entry ordered by canonical name.
	Entries() []CatalogEntry
	Len() int
}

// LineParser extracts candidate test records from raw text lines.
type LineParser interface {
	Parse(line string) (ParsedTest, bool)
}

// NameResolver maps candidate names onto canonical catalog names.
type NameResolver interface {
	Resolve(candidate string) (Resolution, bool)
}

// StatusClassifier places a value relative to a reference range.
type StatusClassifier interface {
	Classify(value float64, rng Range) (Status, float64)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetScoringPolicy() ScoringPolicy
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
