// Package route maps a signal's symbol and timeframe to a destination
// chat id using a fixed priority chain.
package route

import "strings"

// Resolver holds the routing rule set. It is read-only at request time;
// the maps are built once from configuration.
type Resolver struct {
	symbolOverrides    map[string]string
	timeframeOverrides map[string]string
	defaultChatID      string
}

// NewResolver builds a Resolver. Symbol override keys are upper-cased so
// lookups match normalized records.
func NewResolver(symbolOverrides, timeframeOverrides map[string]string, defaultChatID string) *Resolver {
	symbols := make(map[string]string, len(symbolOverrides))
	for symbol, chatID := range symbolOverrides {
		symbols[strings.ToUpper(symbol)] = chatID
	}
	timeframes := make(map[string]string, len(timeframeOverrides))
	for tf, chatID := range timeframeOverrides {
		timeframes[tf] = chatID
	}
	return &Resolver{
		symbolOverrides:    symbols,
		timeframeOverrides: timeframes,
		defaultChatID:      defaultChatID,
	}
}

// Resolve returns the destination chat id, first match wins: exact symbol
// override, exact timeframe override, then the default. No wildcard or
// partial matching. The default may be empty, in which case delivery
// fails downstream and is reported as a failed send.
func (r *Resolver) Resolve(symbol, timeframe string) string {
	if chatID, ok := r.symbolOverrides[strings.ToUpper(symbol)]; ok {
		return chatID
	}
	if chatID, ok := r.timeframeOverrides[timeframe]; ok {
		return chatID
	}
	return r.defaultChatID
}
