package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSubmitLockKey returns the key guarding answer submission for a session
func (r *CacheKeyStruct) SessionSubmitLockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:submit_lock", sessionID)
}

// BankMonitorChannel returns the Redis PubSub channel name for a question bank monitor
func (r *CacheKeyStruct) BankMonitorChannel(bankID string) string {
	return fmt.Sprintf("bank:%s:monitor", bankID)
}

var CacheKey = NewCacheKeyStruct()
