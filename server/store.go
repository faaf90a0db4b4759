package server

import (
	deadlock "github.com/sasha-s/go-deadlock"
)

// Store 世界状态：avatar id -> Avatar 的唯一权威映射
// 写入只发生在 Arena 的单线程循环中；读锁用于管理接口的并发快照
type Store struct {
	mu      deadlock.RWMutex
	avatars map[string]*Avatar
}

func NewStore() *Store {
	return &Store{avatars: make(map[string]*Avatar)}
}

// Get 返回头像副本，调用方的修改不会回写
func (s *Store) Get(id string) (Avatar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.avatars[id]
	if !ok {
		return Avatar{}, false
	}
	return *a, true
}

// Upsert 插入或覆盖
func (s *Store) Upsert(id string, a Avatar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.avatars[id] = &cp
}

// Update 在锁内原地修改指定头像；id 不存在时返回 false（例如与剔除竞争）
func (s *Store) Update(id string, fn func(a *Avatar)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.avatars[id]
	if !ok {
		return false
	}
	fn(a)
	return true
}

// Remove 删除头像，返回是否存在
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.avatars[id]; !ok {
		return false
	}
	delete(s.avatars, id)
	return true
}

// ForEach 在写锁内遍历并允许修改；fn 内不得再调用 Store 的其他方法
func (s *Store) ForEach(fn func(id string, a *Avatar)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.avatars {
		fn(id, a)
	}
}

// Snapshot 只读副本，用于序列化广播
func (s *Store) Snapshot() map[string]Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Avatar, len(s.avatars))
	for id, a := range s.avatars {
		out[id] = *a
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.avatars)
}
