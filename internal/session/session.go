// Package session owns the state shared across screens: the signed-in
// user, the current city and the requirement draft.
package session

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/model"
)

// UserKey is the storage key the signed-in user is persisted under.
const UserKey = "hoko_user"

// Storage is the browser-side key/value store surviving reloads.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Draft is the in-progress requirement between the capture screens and the
// post insert.
type Draft struct {
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	Fragrance   string `json:"fragrance"`
	Details     string `json:"details"`
}

func EmptyDraft() Draft {
	return Draft{Quantity: 1, Unit: catalog.DefaultUnit}
}

// Store is mutated only through its setters.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	user    *model.User
	city    *model.City
	cities  []model.City
	draft   Draft
}

func NewStore(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{storage: storage, draft: EmptyDraft()}
}

// Restore loads the persisted user and resolves its city against the
// loaded list. A corrupt entry is dropped.
func (s *Store) Restore() {
	raw, ok := s.storage.Get(UserKey)
	if !ok {
		return
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		s.storage.Remove(UserKey)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	if c := findCity(s.cities, u.CityID); c != nil {
		s.city = c
	} else if u.City != nil {
		cp := *u.City
		s.city = &cp
	}
}

// Persisted is the raw stored user entry, "" when nobody is signed in.
func (s *Store) Persisted() string {
	raw, _ := s.storage.Get(UserKey)
	return raw
}

func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

// SetUser persists u, or clears the stored entry when u is nil.
func (s *Store) SetUser(u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		s.storage.Remove(UserKey)
		return nil
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	cp := *u
	s.user = &cp
	s.storage.Set(UserKey, string(raw))
	return nil
}

func (s *Store) City() *model.City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.city == nil {
		return nil
	}
	cp := *s.city
	return &cp
}

func (s *Store) SetCity(c *model.City) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.city = nil
		return
	}
	cp := *c
	s.city = &cp
}

func (s *Store) Cities() []model.City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.City(nil), s.cities...)
}

func (s *Store) SetCities(list []model.City) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities = append([]model.City(nil), list...)
}

var ErrUnknownCity = errors.New("unknown city")

// CityByID resolves id from the loaded list.
func (s *Store) CityByID(id string) (*model.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := findCity(s.cities, id); c != nil {
		return c, nil
	}
	return nil, ErrUnknownCity
}

func (s *Store) Draft() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

func (s *Store) SetDraft(d Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

func (s *Store) ResetDraft() {
	s.SetDraft(EmptyDraft())
}

// SignedIn reports whether a user and their city are both known.
func (s *Store) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.city != nil
}

// Logout clears the user, city and draft and the persisted entry.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.city = nil
	s.draft = EmptyDraft()
	s.storage.Remove(UserKey)
}

func findCity(list []model.City, id string) *model.City {
	for i := range list {
		if list[i].ID == id {
			c := list[i]
			return &c
		}
	}
	return nil
}

// MemoryStorage backs Store when no browser storage is attached.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryStorage) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}
