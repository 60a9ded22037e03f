// Package inventory owns the set of asset instances currently held by the
// agent. Instances of the same type are interchangeable for "requires asset
// of type X" matching but keep distinct instance identities.
package inventory

import (
	"sync"

	"github.com/google/uuid"
)

// Asset 是智能体持有的一个资产实例。AssetID 是类型标签（如 "pdp"）。
type Asset struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Name    string `json:"name"`
}

// Store 以插入顺序保存资产实例。
type Store struct {
	mu     sync.RWMutex
	assets []Asset
}

// NewStore 创建一个空的资产仓库。
func NewStore() *Store {
	return &Store{}
}

// Add 创建并加入一个指定类型的新资产实例，返回该实例。
func (s *Store) Add(assetID, name string) Asset {
	asset := Asset{
		ID:      uuid.NewString(),
		AssetID: assetID,
		Name:    name,
	}
	s.mu.Lock()
	s.assets = append(s.assets, asset)
	s.mu.Unlock()
	return asset
}

// HasType 判断是否持有指定类型的资产实例。
func (s *Store) HasType(assetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, asset := range s.assets {
		if asset.AssetID == assetID {
			return true
		}
	}
	return false
}

// RemoveFirst 移除最先加入的一个指定类型的资产实例。
// 返回被移除的实例；未找到时第二个返回值为 false。
func (s *Store) RemoveFirst(assetID string) (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, asset := range s.assets {
		if asset.AssetID == assetID {
			s.assets = append(s.assets[:i], s.assets[i+1:]...)
			return asset, true
		}
	}
	return Asset{}, false
}

// List 返回当前持有的全部资产实例，保持插入顺序。
func (s *Store) List() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Asset(nil), s.assets...)
}

// Len 返回持有的资产实例数量。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
