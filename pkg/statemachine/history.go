package statemachine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/junbin-yang/go-realtime/pkg/enum"
)

// Record 一次已完成转换的记录
type Record struct {
	From      enum.Value   `json:"from"`
	To        enum.Value   `json:"to"`
	Metadata  MetadataKind `json:"metadata"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Snapshot 状态快照
type Snapshot struct {
	State     enum.Value `json:"state"`
	Timestamp time.Time  `json:"timestamp"`
	History   []Record   `json:"history,omitempty"`
}

// History 有界的转换历史，超出上限时丢弃最早的记录
type History struct {
	mu      sync.RWMutex
	limit   int
	records []Record
}

// NewHistory 创建转换历史
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{
		limit:   limit,
		records: make([]Record, 0, limit),
	}
}

func (h *History) record(t *Transition, fault error) {
	r := Record{
		From:      t.From,
		To:        t.To,
		Metadata:  t.Metadata.Kind(),
		Timestamp: time.Now(),
	}
	if fault != nil {
		r.Error = fault.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == h.limit {
		copy(h.records, h.records[1:])
		h.records = h.records[:h.limit-1]
	}
	h.records = append(h.records, r)
}

// Records 获取历史副本，按发生顺序
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record{}, h.records...)
}

// Last 获取最近一次转换
func (h *History) Last() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Clear 清空历史记录
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}

// MarshalJSON 序列化历史记录
func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Records())
}

// CreateSnapshot 创建当前状态快照，仅用于诊断，不支持恢复
func (m *Machine[E]) CreateSnapshot() *Snapshot {
	s := &Snapshot{
		State:     m.Current(),
		Timestamp: time.Now(),
	}
	if m.history != nil {
		s.History = m.history.Records()
	}
	return s
}
