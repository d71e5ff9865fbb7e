/*
Package config provides type-safe configuration extraction from map[string]any.

config wraps a map and provides typed accessors that return a default when a
key is missing or holds the wrong type. Dotted keys reach into nested
sections, which is how mediator engine settings are usually laid out:

	max_cascade_depth: 64
	metrics: true
	journal:
	  driver: sqlite
	  path: ./mediator-journal.db

Loading and reading:

	cfg, err := config.FromFile("mediator.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	depth := cfg.Int("max_cascade_depth", 256)     // 64
	driver := cfg.String("journal.driver", "")     // "sqlite"
	journal := cfg.Sub("journal")                  // nested section

FromYAML, FromJSON and FromTOML parse in-memory documents. Integers decoded from JSON
arrive as float64; Int accepts them when they have no fractional part.

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
