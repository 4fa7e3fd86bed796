package model

import "strings"

// LogRecord is the raw chain log consumed by the action pipeline.
type LogRecord struct {
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
}

// Topic0 returns the event signature topic, or "" when absent.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// Topic returns the topic at slot i, or "" when absent.
func (lr LogRecord) Topic(i int) string {
	if i < 0 || i >= len(lr.Topics) {
		return ""
	}
	return lr.Topics[i]
}

// MatchesTopic0 reports whether the signature topic equals the given hash,
// case-insensitively. Logs without topics never match.
func (lr LogRecord) MatchesTopic0(topic0 string) bool {
	first := lr.Topic0()
	if first == "" {
		return false
	}
	return strings.EqualFold(first, topic0)
}
