package crea

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/telemetry"
	"sync"
)

const DefaultAuthFile = "auth-crea.json"

const (
	report_auth_store_reload = "auth-store.reload"
)

// StorageState is a saved browser session: its cookies and per origin localStorage.
type StorageState struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	// Expires is in unix seconds, -1 marks a session cookie.
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

type Origin struct {
	Origin       string           `json:"origin"`
	LocalStorage []LocalStorageKV `json:"localStorage"`
}

type LocalStorageKV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AuthOptions struct {
	// JSON is the raw session state, it takes precedence over File.
	JSON string
	// File defaults to DefaultAuthFile.
	File string
}

// AuthStore holds the session state used by the browser strategy and can reload it
// while the service runs.
type AuthStore struct {
	opts AuthOptions
	tel  telemetry.API

	mutex   sync.RWMutex
	state   *StorageState
	source  string
	version uint64
}

func NewAuthStore(opts AuthOptions, tel telemetry.API) *AuthStore {
	assert.NotNil(tel)
	if opts.File == "" {
		opts.File = DefaultAuthFile
	}
	return &AuthStore{
		opts: opts,
		tel:  telemetry.NewScopedAPI("crea_scraper", tel),
	}
}

func (s *AuthStore) load() (*StorageState, string, error) {
	if s.opts.JSON != "" {
		var state StorageState
		err := json.Unmarshal([]byte(s.opts.JSON), &state)
		if err != nil {
			return nil, "", fmt.Errorf("%w: CREA_AUTH_JSON: %w", availability.ErrAuthUnavailable, err)
		}
		return &state, "env", nil
	}

	contents, err := os.ReadFile(s.opts.File)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: no session state in env and %s does not exist", availability.ErrAuthUnavailable, s.opts.File)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", availability.ErrAuthUnavailable, err)
	}
	var state StorageState
	err = json.Unmarshal(contents, &state)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", availability.ErrAuthUnavailable, s.opts.File, err)
	}
	return &state, s.opts.File, nil
}

// Reload rereads the session state, on failure the previous state is dropped.
func (s *AuthStore) Reload() error {
	state, source, err := s.load()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.version == 0 || source != s.source || !reflect.DeepEqual(state, s.state) {
		s.version++
	}
	s.state = state
	s.source = source

	if err != nil {
		s.tel.ReportWarning(report_auth_store_reload, err)
		return err
	}
	s.tel.ReportDebug("loaded session state", source, len(state.Cookies), len(state.Origins))
	return nil
}

// State returns a copy of the session state and the version it was loaded as.
func (s *AuthStore) State() (StorageState, uint64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.state == nil {
		return StorageState{}, s.version, fmt.Errorf("%w: session state is not loaded", availability.ErrAuthUnavailable)
	}
	state := StorageState{
		Cookies: append([]Cookie(nil), s.state.Cookies...),
		Origins: make([]Origin, len(s.state.Origins)),
	}
	for i, o := range s.state.Origins {
		state.Origins[i] = Origin{
			Origin:       o.Origin,
			LocalStorage: append([]LocalStorageKV(nil), o.LocalStorage...),
		}
	}
	return state, s.version, nil
}

// Source names where the current state was loaded from, "" when none is loaded.
func (s *AuthStore) Source() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.source
}

// Available reports whether a session state is loaded.
func (s *AuthStore) Available() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state != nil
}
