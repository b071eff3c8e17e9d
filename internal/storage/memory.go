package storage

import (
	"fmt"
	"sort"
)

// Memory is an in-process medium with the same contract as DB.
// Fail, when set, is returned by every operation.
type Memory struct {
	items map[string]string
	quota int64
	Fail  error
}

// NewMemory returns an empty medium. quota works as in Open.
func NewMemory(quota int64) *Memory {
	return &Memory{items: make(map[string]string), quota: quota}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	if m.Fail != nil {
		return "", false, m.Fail
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	if m.Fail != nil {
		return m.Fail
	}
	if m.quota > 0 {
		var used int64
		for k, v := range m.items {
			if k != key {
				used += int64(len(v))
			}
		}
		if used+int64(len(value)) > m.quota {
			return fmt.Errorf("set item %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.items, key)
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
