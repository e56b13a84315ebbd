// Package registry provides machine-key canonicalization and per-venue
// machine pools. The loader resolves every incoming machine name through a
// Registry snapshot so that only canonical keys reach the score corpus;
// the aggregator uses the same snapshot to drop records whose keys are
// unknown anyway (bad historical data).
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinleague/pinstats/internal/config"
	"github.com/pinleague/pinstats/internal/db"
	"github.com/pinleague/pinstats/internal/model"
)

// Registry is a read-only snapshot of machines and aliases, loaded once per
// batch run. Lookups are case-insensitive on the alias side.
type Registry struct {
	machines map[string]bool
	aliases  map[string]string
}

// Load reads the full machine registry.
func Load(ctx context.Context, pool *db.Pool) (*Registry, error) {
	r := &Registry{
		machines: make(map[string]bool),
		aliases:  make(map[string]string),
	}

	rows, err := pool.Query(ctx, `SELECT key FROM `+config.MachinesTable)
	if err != nil {
		return nil, fmt.Errorf("load machines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		r.machines[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasRows, err := pool.Query(ctx, `SELECT alias, canonical_key FROM `+config.MachineAliasesTable)
	if err != nil {
		return nil, fmt.Errorf("load machine aliases: %w", err)
	}
	defer aliasRows.Close()
	for aliasRows.Next() {
		var alias, canonical string
		if err := aliasRows.Scan(&alias, &canonical); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		r.aliases[strings.ToLower(alias)] = canonical
	}
	return r, aliasRows.Err()
}

// KnownMachine reports whether key is a canonical machine key.
func (r *Registry) KnownMachine(key string) bool {
	return r.machines[key]
}

// Canonical resolves a machine name or alias to its canonical key. A name
// that already is canonical resolves to itself.
func (r *Registry) Canonical(name string) (string, error) {
	if r.machines[name] {
		return name, nil
	}
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: machine %q", model.ErrUnknownReference, name)
}

// AddMachine registers a canonical key in the snapshot. The loader calls
// this after persisting a machine it had to create.
func (r *Registry) AddMachine(key string) {
	r.machines[key] = true
}
