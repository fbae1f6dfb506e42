package model

import (
	"strings"
	"sync"
)

// TokenBook 符号 <-> mint 地址映射，用于日志与配置中的可读名称
type TokenBook struct {
	mu       sync.RWMutex
	bySymbol map[string]TokenID
	byID     map[TokenID]string
}

// NewTokenBook 从 symbol -> mint 映射创建
func NewTokenBook(symbols map[string]string) *TokenBook {
	b := &TokenBook{
		bySymbol: make(map[string]TokenID, len(symbols)),
		byID:     make(map[TokenID]string, len(symbols)),
	}
	for sym, id := range symbols {
		b.Add(sym, TokenID(id))
	}
	return b
}

// Add 注册一个代币
func (b *TokenBook) Add(symbol string, id TokenID) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	id = TokenID(strings.TrimSpace(string(id)))
	if sym == "" || id == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bySymbol[sym] = id
	b.byID[id] = sym
}

// Resolve 符号转 TokenID；未知符号原样返回（视为已是地址）
func (b *TokenBook) Resolve(symbolOrID string) TokenID {
	s := strings.TrimSpace(symbolOrID)
	if b == nil {
		return TokenID(s)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id, ok := b.bySymbol[strings.ToUpper(s)]; ok {
		return id
	}
	return TokenID(s)
}

// Name 返回可读名称；未知地址截断显示
func (b *TokenBook) Name(id TokenID) string {
	if b != nil {
		b.mu.RLock()
		sym, ok := b.byID[id]
		b.mu.RUnlock()
		if ok {
			return sym
		}
	}
	s := string(id)
	if len(s) > 10 {
		return s[:4] + ".." + s[len(s)-4:]
	}
	return s
}

// Known 是否为已注册代币
func (b *TokenBook) Known(id TokenID) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.byID[id]
	return ok
}

// Len 已注册代币数量
func (b *TokenBook) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}
