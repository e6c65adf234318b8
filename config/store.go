package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/armatrix/mcp-gateway/pool"
)

// Store owns the persisted gateway configuration. All mutators persist
// the file immediately, mirroring what administrative callers expect:
// a successful add/update/remove survives a restart.
//
// The in-memory state always holds substituted values; Save therefore
// writes substituted values too, and a later export reproduces them.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg Config
}

// NewStore creates a Store bound to the given file path. The file is not
// touched until Load.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path: path,
		cfg:  Config{Model: DefaultModel()},
	}
}

// Path returns the configuration file location.
func (s *Store) Path() string { return s.path }

// Load reads the configuration file, applying ${VAR} substitution to
// every string in the document. A missing file is created with defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cfg = Config{Model: DefaultModel()}
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", s.path, err)
	}

	cfg, err := decode(raw)
	if err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// decode parses a configuration document, substituting environment
// references before the typed unmarshal so defaults apply per field.
func decode(raw []byte) (Config, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc = substituteEnv(doc)

	processed, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cfg := Config{Model: DefaultModel()}
	if err := json.Unmarshal(processed, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return cfg, nil
}

// Save persists the current configuration.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir %s: %w", dir, err)
		}
	}
	raw, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", s.path, err)
	}
	return nil
}

// Servers returns a copy of all configured servers in file order.
func (s *Store) Servers() []pool.ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pool.ServerConfig, len(s.cfg.Servers))
	for i, srv := range s.cfg.Servers {
		out[i] = cloneServer(srv)
	}
	return out
}

// EnabledServers returns a copy of the servers whose Enabled flag is set.
func (s *Store) EnabledServers() []pool.ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pool.ServerConfig
	for _, srv := range s.cfg.Servers {
		if srv.Enabled {
			out = append(out, cloneServer(srv))
		}
	}
	return out
}

// Server returns the config for one server id.
func (s *Store) Server(id string) (pool.ServerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.cfg.Servers {
		if srv.ID == id {
			return cloneServer(srv), true
		}
	}
	return pool.ServerConfig{}, false
}

// Add appends a new server and persists. The id must be unique.
func (s *Store) Add(cfg pool.ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.cfg.Servers {
		if srv.ID == cfg.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateServer, cfg.ID)
		}
	}
	s.cfg.Servers = append(s.cfg.Servers, cloneServer(cfg))
	return s.saveLocked()
}

// Update merges the given field updates into an existing server,
// validates the result, and persists. Field names follow the JSON form.
func (s *Store) Update(id string, updates map[string]any) (pool.ServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, srv := range s.cfg.Servers {
		if srv.ID != id {
			continue
		}
		merged, err := mergeServer(srv, updates)
		if err != nil {
			return pool.ServerConfig{}, err
		}
		if err := merged.Validate(); err != nil {
			return pool.ServerConfig{}, err
		}
		s.cfg.Servers[i] = merged
		if err := s.saveLocked(); err != nil {
			return pool.ServerConfig{}, err
		}
		return cloneServer(merged), nil
	}
	return pool.ServerConfig{}, fmt.Errorf("%w: %s", ErrServerNotFound, id)
}

// mergeServer overlays updates on the JSON form of base, the same way an
// HTTP PUT body with a subset of fields is applied.
func mergeServer(base pool.ServerConfig, updates map[string]any) (pool.ServerConfig, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return pool.ServerConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return pool.ServerConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for k, v := range updates {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return pool.ServerConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var out pool.ServerConfig
	if err := json.Unmarshal(merged, &out); err != nil {
		return pool.ServerConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// Remove deletes a server and persists.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, srv := range s.cfg.Servers {
		if srv.ID == id {
			s.cfg.Servers = append(s.cfg.Servers[:i], s.cfg.Servers[i+1:]...)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("%w: %s", ErrServerNotFound, id)
}

// SetEnabled toggles a server and persists.
func (s *Store) SetEnabled(id string, enabled bool) (pool.ServerConfig, error) {
	return s.Update(id, map[string]any{"enabled": enabled})
}

// Model returns the current model configuration.
func (s *Store) Model() ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cfg.Model
	if out.MaxTokens != nil {
		mt := *out.MaxTokens
		out.MaxTokens = &mt
	}
	return out
}

// UpdateModel merges field updates into the model configuration and
// persists. Field names follow the JSON form.
func (s *Store) UpdateModel(updates map[string]any) (ModelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(s.cfg.Model)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ModelConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for k, v := range updates {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var out ModelConfig
	if err := json.Unmarshal(merged, &out); err != nil {
		return ModelConfig{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s.cfg.Model = out
	if err := s.saveLocked(); err != nil {
		return ModelConfig{}, err
	}
	return out, nil
}

// Export returns a deep copy of the full configuration.
func (s *Store) Export() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Import replaces the whole configuration from a raw JSON document,
// applying the same environment substitution as Load, then persists.
func (s *Store) Import(raw []byte) error {
	cfg, err := decode(raw)
	if err != nil {
		return err
	}
	for _, srv := range cfg.Servers {
		if err := srv.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.saveLocked()
}
