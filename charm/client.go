// ABOUTME: Charm KV client used by the roaming mirror-state backend
// ABOUTME: Wraps charm/kv with prefix operations for pair-namespaced keys
package charm

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/kv"
)

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Client is the process-wide handle to the Charm KV store. When the
// "charm" state backend is selected, event mappings and sync state live
// here and roam across linked devices.
type Client struct {
	kv         *kv.KV
	config     *Config
	mu         sync.RWMutex
	testClient *testClient // in-process badger stand-in for tests
}

// GetClient returns the shared client, opening the KV store on first
// use.
func GetClient() (*Client, error) {
	clientOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			clientErr = fmt.Errorf("failed to load config: %w", err)
			return
		}

		// The charm libraries read the host from the environment
		_ = os.Setenv("CHARM_HOST", cfg.Host)

		db, err := kv.OpenWithDefaults(AppName)
		if err != nil {
			clientErr = fmt.Errorf("failed to open charm kv: %w", err)
			return
		}

		globalClient = &Client{kv: db, config: cfg}

		// Pull state written by other devices before the first read
		if cfg.AutoSync {
			_ = db.Sync()
		}
	})
	if clientErr != nil {
		return nil, clientErr
	}
	return globalClient, nil
}

// Config returns the backend configuration the client was opened with.
func (c *Client) Config() *Config {
	if c.testClient != nil {
		return c.testClient.Config()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Sync pushes local writes and pulls remote ones.
func (c *Client) Sync() error {
	if c.testClient != nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Get retrieves a value by key.
func (c *Client) Get(key []byte) ([]byte, error) {
	if c.testClient != nil {
		return c.testClient.Get(key)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get(key)
}

// Set stores a value, syncing afterwards when auto-sync is on.
func (c *Client) Set(key, value []byte) error {
	if c.testClient != nil {
		return c.testClient.Set(key, value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// Delete removes a key, syncing afterwards when auto-sync is on.
func (c *Client) Delete(key []byte) error {
	if c.testClient != nil {
		return c.testClient.Delete(key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// Keys returns every key in the store.
func (c *Client) Keys() ([][]byte, error) {
	if c.testClient != nil {
		return c.testClient.Keys()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// keysWithPrefix scans for keys in one pair's namespace. charm/kv has no
// native prefix iterator, so this filters the full key listing.
func (c *Client) keysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// CountPrefix counts the keys in a pair's namespace.
func (c *Client) CountPrefix(prefix []byte) (int, error) {
	keys, err := c.keysWithPrefix(prefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// DeletePrefix removes every key in a pair's namespace. Used when a full
// sync rebuilds the mapping set from scratch.
func (c *Client) DeletePrefix(prefix []byte) error {
	keys, err := c.keysWithPrefix(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.Delete(key); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

// Reset wipes all mirror state from the KV store.
func (c *Client) Reset() error {
	if c.testClient != nil {
		return c.testClient.Reset()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
