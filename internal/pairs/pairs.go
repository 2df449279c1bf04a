// Package pairs manages the enabled trading pairs set: a store-backed
// list with the configured defaults as fallback. The webhook symbol gate
// reads it; the admin surface mutates it.
package pairs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/store"
)

const configKey = "enabled_pairs"

// Entry is one monitored pair with its audit fields.
type Entry struct {
	Symbol       string `json:"symbol"`
	Enabled      bool   `json:"enabled"`
	AddedBy      string `json:"added_by"`
	CreatedAtUTC string `json:"created_at_utc"`
	UpdatedAtUTC string `json:"updated_at_utc,omitempty"`
}

// Service reads and mutates the enabled-pairs list.
type Service struct {
	store    store.Store
	defaults []string
	logger   *logrus.Logger
}

func NewService(st store.Store, defaults []string, logger *logrus.Logger) *Service {
	return &Service{store: st, defaults: defaults, logger: logger}
}

// Enabled returns the symbols currently accepting signals. Store faults
// fall back to the configured defaults so an unreachable store degrades
// the admin surface, not signal intake.
func (s *Service) Enabled(ctx context.Context) ([]string, error) {
	entries, err := s.load(ctx)
	if err != nil {
		s.logger.WithField("error", err).Warn("enabled pairs lookup failed, using configured defaults")
		return s.defaults, nil
	}
	if entries == nil {
		return s.defaults, nil
	}

	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Enabled {
			symbols = append(symbols, entry.Symbol)
		}
	}
	return symbols, nil
}

// List returns all known entries, seeding from the defaults when the
// store holds none yet.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return s.seedEntries(), nil
	}
	return entries, nil
}

// Add enables a pair, creating it if unknown.
func (s *Service) Add(ctx context.Context, symbol, addedBy string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = s.seedEntries()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	found := false
	for i := range entries {
		if entries[i].Symbol == symbol {
			entries[i].Enabled = true
			entries[i].UpdatedAtUTC = now
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, Entry{
			Symbol:       symbol,
			Enabled:      true,
			AddedBy:      addedBy,
			CreatedAtUTC: now,
		})
	}

	return s.save(ctx, entries)
}

// Remove disables a pair. Returns false when the pair is unknown.
func (s *Service) Remove(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if entries == nil {
		entries = s.seedEntries()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range entries {
		if entries[i].Symbol == symbol {
			entries[i].Enabled = false
			entries[i].UpdatedAtUTC = now
			return true, s.save(ctx, entries)
		}
	}
	return false, nil
}

func (s *Service) load(ctx context.Context) ([]Entry, error) {
	data, err := s.store.GetConfig(ctx, configKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode enabled pairs: %w", err)
	}
	return entries, nil
}

func (s *Service) save(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode enabled pairs: %w", err)
	}
	return s.store.SetConfig(ctx, configKey, data)
}

func (s *Service) seedEntries() []Entry {
	now := time.Now().UTC().Format(time.RFC3339)
	entries := make([]Entry, 0, len(s.defaults))
	for _, symbol := range s.defaults {
		entries = append(entries, Entry{
			Symbol:       symbol,
			Enabled:      true,
			AddedBy:      "system",
			CreatedAtUTC: now,
		})
	}
	return entries
}
