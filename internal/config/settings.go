// =============================================================================
// Ticket Sheets - Configuration Store
// =============================================================================
//
// This module manages the runtime configuration persisted in config.json:
// the product filter, the CSV source URL, the old-order cutoff, the event
// price table, the tally train limits and the active data configuration
// selector. The JSON key names match the original export tooling so an
// existing config.json keeps working.
//
// The store serializes writes and hands out value snapshots for reads: a
// pipeline run takes one Snapshot at its start and never observes concurrent
// updates mid-run.
//
// =============================================================================

package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceEntry holds the configured ticket prices for one event.
//
// Entries are matched against a booking's "<dd/mm/yy> <product>" key, or by
// case-insensitive substring on the product title when Match is set; an entry
// keyed "default" applies when nothing else matches. Event prices value a
// booking's tickets at the regular rate (savings and walk-in reconstruction);
// standard prices are reserved for the extra-cost calculation, which is not
// implemented.
type PriceEntry struct {
	Match          string                     `json:"match,omitempty"`
	EventPrices    map[string]decimal.Decimal `json:"event"`
	StandardPrices map[string]decimal.Decimal `json:"standard,omitempty"`

	// InfantDiscount maps a calendar month name ("November", "December") to
	// the per-infant discount applied when reconstructing walk-in prices.
	InfantDiscount map[string]decimal.Decimal `json:"infant discount,omitempty"`
}

// TrainLimit pairs a train time ("11:30") with its seat limit. Limits are a
// list rather than a map so the tally sheet column order is configured, not
// incidental.
type TrainLimit struct {
	Time  string `json:"time"`
	Seats int    `json:"seats"`
}

// Settings is the runtime configuration snapshot consumed by one run.
type Settings struct {
	ProductFilter string `json:"product filter"`
	CSVURL        string `json:"CSV URL"`
	HideOldOrders bool   `json:"hide old orders"`
	OldOrderDate  string `json:"old order date"`

	ActiveDataConfig string                `json:"active data config"`
	TicketPrices     map[string]PriceEntry `json:"ticket prices"`
	TrainLimits      []TrainLimit          `json:"train limits"`

	SecretKey string `json:"secret_key"`
}

// TrainTimes returns the configured train times in tally column order.
func (s Settings) TrainTimes() []string {
	out := make([]string, len(s.TrainLimits))
	for i, tl := range s.TrainLimits {
		out[i] = tl.Time
	}
	return out
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the persisted configuration file. Writes are serialized; reads
// are value snapshots.
type Store struct {
	mu   sync.RWMutex
	path string
	cur  Settings
}

// Open loads the configuration file at path, creating it with defaults when
// it does not exist. A missing secret key is generated and persisted.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		s.cur = Settings{}
	}

	applyDefaults(&s.cur)

	if s.cur.SecretKey == "" {
		s.cur.SecretKey = newSecretKey()
		if err := s.save(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Reload re-reads the configuration file. Under multiple server workers the
// file may have been updated by another process, so handlers reload before
// taking their snapshot.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&loaded)

	s.mu.Lock()
	s.cur = loaded
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the current settings for one run.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.cur)
}

// Update applies fn to the settings under the write lock and persists the
// result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cur)
	applyDefaults(&s.cur)
	return s.save()
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.cur, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

func applyDefaults(s *Settings) {
	if s.OldOrderDate == "" {
		s.OldOrderDate = "2021-01-01"
	}
	if s.ActiveDataConfig == "" {
		s.ActiveDataConfig = "default"
	}
	if s.TicketPrices == nil {
		s.TicketPrices = map[string]PriceEntry{}
	}
}

func cloneSettings(s Settings) Settings {
	out := s
	out.TicketPrices = make(map[string]PriceEntry, len(s.TicketPrices))
	for k, v := range s.TicketPrices {
		out.TicketPrices[k] = clonePriceEntry(v)
	}
	out.TrainLimits = append([]TrainLimit(nil), s.TrainLimits...)
	return out
}

func clonePriceEntry(e PriceEntry) PriceEntry {
	out := e
	out.EventPrices = clonePriceMap(e.EventPrices)
	out.StandardPrices = clonePriceMap(e.StandardPrices)
	out.InfantDiscount = clonePriceMap(e.InfantDiscount)
	return out
}

func clonePriceMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func newSecretKey() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
