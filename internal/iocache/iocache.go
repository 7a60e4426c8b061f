// Package iocache persists the profile-marker cache and verification history.
package iocache

import (
	"sync"

	"github.com/huangsam/coverbouncer/internal/contract"
)

// StoreManagerImpl holds the marker cache and history stores.
type StoreManagerImpl struct {
	sync.RWMutex // Protects the store pointers during initialization
	marker       contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.StoreManager = &StoreManagerImpl{} // Compile-time check

// GetMarkerStore returns the marker CacheStore, or nil when caching is disabled.
func (mgr *StoreManagerImpl) GetMarkerStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.marker
}

// GetHistoryStore returns the HistoryStore, or nil when history is disabled.
func (mgr *StoreManagerImpl) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
