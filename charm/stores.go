// ABOUTME: Mapping and sync-state stores backed by the Charm KV database
// ABOUTME: Pair-namespaced keys let one KV serve multiple calendar pairs

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	syncpkg "github.com/harperreed/calmirror/sync"
)

// Key layout:
//   mapping/<pair>/<sourceID> -> targetID
//   state/<pair>              -> JSON persistedState

type persistedState struct {
	Token        string     `json:"token,omitempty"`
	ErrorCount   int        `json:"error_count,omitempty"`
	Status       string     `json:"status,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
}

// NewStores returns KV-backed mapping and state stores for a calendar
// pair. The pass lock and run history stay in SQLite: the KV store has
// no compare-and-swap, so it cannot host a lease, and run history is
// per-device operational data with no reason to roam.
func NewStores(c *Client, pair string) (syncpkg.MappingStore, syncpkg.StateStore) {
	return &kvMappingStore{client: c, pair: pair}, &kvStateStore{client: c, pair: pair}
}

func isNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

type kvMappingStore struct {
	client *Client
	pair   string
}

func (s *kvMappingStore) prefix() string {
	return "mapping/" + s.pair + "/"
}

func (s *kvMappingStore) key(sourceID string) []byte {
	return []byte(s.prefix() + sourceID)
}

func (s *kvMappingStore) Get(sourceID string) (string, error) {
	value, err := s.client.Get(s.key(sourceID))
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get mapping: %w", err)
	}
	return string(value), nil
}

func (s *kvMappingStore) Set(sourceID, targetID string) error {
	if err := s.client.Set(s.key(sourceID), []byte(targetID)); err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}
	return nil
}

func (s *kvMappingStore) Delete(sourceID string) error {
	if err := s.client.Delete(s.key(sourceID)); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

func (s *kvMappingStore) Count() (int, error) {
	count, err := s.client.CountPrefix([]byte(s.prefix()))
	if err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return count, nil
}

func (s *kvMappingStore) Clear() error {
	if err := s.client.DeletePrefix([]byte(s.prefix())); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	return nil
}

type kvStateStore struct {
	client *Client
	pair   string
}

func (s *kvStateStore) key() []byte {
	return []byte("state/" + s.pair)
}

func (s *kvStateStore) load() (persistedState, error) {
	var state persistedState
	value, err := s.client.Get(s.key())
	if err != nil {
		if isNotFound(err) {
			return state, nil
		}
		return state, fmt.Errorf("failed to get sync state: %w", err)
	}
	if err := json.Unmarshal(value, &state); err != nil {
		return state, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return state, nil
}

func (s *kvStateStore) save(state persistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	if err := s.client.Set(s.key(), data); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

func (s *kvStateStore) Get() (syncpkg.StateSnapshot, error) {
	state, err := s.load()
	if err != nil {
		return syncpkg.StateSnapshot{}, err
	}
	return syncpkg.StateSnapshot{
		Token:        state.Token,
		ErrorCount:   state.ErrorCount,
		Status:       state.Status,
		ErrorMessage: state.ErrorMessage,
		LastSync:     state.LastSync,
	}, nil
}

func (s *kvStateStore) SetToken(token string) error {
	state, err := s.load()
	if err != nil {
		return err
	}
	now := time.Now()
	state.Token = token
	state.ErrorCount = 0
	state.Status = "idle"
	state.ErrorMessage = nil
	state.LastSync = &now
	return s.save(state)
}

func (s *kvStateStore) ClearToken() error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state.Token = ""
	return s.save(state)
}

func (s *kvStateStore) IncrementErrorCount() error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state.ErrorCount++
	return s.save(state)
}

func (s *kvStateStore) ResetErrorCount() error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state.ErrorCount = 0
	return s.save(state)
}

func (s *kvStateStore) SetStatus(status string, errorMsg *string) error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state.Status = status
	state.ErrorMessage = errorMsg
	return s.save(state)
}

func (s *kvStateStore) Clear() error {
	if err := s.client.Delete(s.key()); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}
	return nil
}
