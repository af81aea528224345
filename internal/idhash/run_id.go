// Package idhash derives deterministic identifiers from run inputs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(strategy_id|symbol|interval|config_key)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(strategyID, symbol, interval, configKey string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", strategyID, symbol, interval, configKey)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSweepID computes a deterministic sweep_id for a parameter grid.
// Formula: SHA256(symbol|interval|fast_min-fast_max/step|slow_min-slow_max/step|bars|config_key)
func ComputeSweepID(symbol, interval string, fastMin, fastMax, slowMin, slowMax, step, bars int, configKey string) string {
	data := fmt.Sprintf("%s|%s|%d-%d/%d|%d-%d/%d|%d|%s",
		symbol, interval, fastMin, fastMax, step, slowMin, slowMax, step, bars, configKey)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
