package actions

import (
	"strings"

	"actionScope/internal/model"
)

// TopicFilter is an event-signature allow-list. Keys are lower-cased topic0
// hashes; a non-empty value restricts the match to that emitting contract
// address (lower-cased), an empty value accepts any emitter.
type TopicFilter map[string]string

// TxGroup holds the filtered logs of one transaction, preserving the order
// the logs were supplied in.
type TxGroup struct {
	TxHash string
	Logs   []model.LogRecord
}

// GroupByTransaction filters logs through the allow-list and groups them per
// transaction. Groups are returned in first-encounter order; logs without a
// signature topic never match. Pure, no side effects.
func GroupByTransaction(logs []model.LogRecord, filter TopicFilter) []TxGroup {
	index := make(map[string]int)
	groups := make([]TxGroup, 0)

	for _, log := range logs {
		topic0 := strings.ToLower(log.Topic0())
		if topic0 == "" {
			continue
		}
		address, ok := filter[topic0]
		if !ok {
			continue
		}
		if address != "" && !strings.EqualFold(log.Address, address) {
			continue
		}

		key := strings.ToLower(log.TxHash)
		at, ok := index[key]
		if !ok {
			at = len(groups)
			index[key] = at
			groups = append(groups, TxGroup{TxHash: log.TxHash})
		}
		groups[at].Logs = append(groups[at].Logs, log)
	}

	return groups
}

// TxHashes returns the distinct transaction hashes of a log batch in
// first-encounter order.
func TxHashes(logs []model.LogRecord) []string {
	seen := make(map[string]bool, len(logs))
	out := make([]string, 0, len(logs))
	for _, log := range logs {
		key := strings.ToLower(log.TxHash)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, log.TxHash)
	}
	return out
}
