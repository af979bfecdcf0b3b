package config

import "sync/atomic"

// Runtime holds the active configuration behind an atomic pointer so request
// handlers can read a consistent snapshot while settings change underneath.
type Runtime struct {
	current atomic.Pointer[Config]
}

func NewRuntime(cfg *Config) *Runtime {
	r := &Runtime{}
	r.current.Store(cfg)
	return r
}

// Current returns the active configuration snapshot. Callers must not mutate
// the returned value.
func (r *Runtime) Current() *Config {
	return r.current.Load()
}

// Update validates and swaps in a new configuration. On validation failure
// the previous configuration stays active.
func (r *Runtime) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.current.Store(cfg)
	return nil
}
