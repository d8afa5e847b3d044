package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/selfmod"
	"github.com/lazypower/vitality/internal/vitality"
)

// Cycle is one row of the cycle ledger.
type Cycle struct {
	ID              int64             `json:"id"`
	AgentID         string            `json:"agent_id"`
	ExperienceType  string            `json:"experience_type"`
	ExperienceCount int               `json:"experience_count"`
	Stage           int               `json:"stage"`
	Level           string            `json:"level"`
	Aggregate       float64           `json:"aggregate"`
	Changes         []vitality.Change `json:"changes"`
	CreatedAt       int64             `json:"created_at"`
}

// RecordCycle appends a finished cycle and a CBOR snapshot of the resulting
// state to the ledger.
func (db *DB) RecordCycle(exp consciousness.ExperienceType, res vitality.CycleResult) (int64, error) {
	st := res.State
	changes, err := json.Marshal(res.Changes)
	if err != nil {
		return 0, fmt.Errorf("encode changes: %w", err)
	}
	snap, err := EncodeSnapshot(st)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	at := st.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	result, err := db.Exec(`
		INSERT INTO vitality_cycles (agent_id, experience_type, experience_count, stage, level, aggregate, changes, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.AgentID, string(exp), st.Growth.ExperienceCount, st.Growth.CultivationStage,
		string(st.ConsciousnessLevel), consciousness.Aggregate(st.Consciousness), string(changes), snap, at.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert cycle: %w", err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// RecentCycles returns the most recent cycles for an agent, newest first.
func (db *DB) RecentCycles(agentID string, limit int) ([]Cycle, error) {
	rows, err := db.Query(`
		SELECT id, agent_id, experience_type, experience_count, stage, level, aggregate, changes, created_at
		FROM vitality_cycles WHERE agent_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var changes string
		if err := rows.Scan(&c.ID, &c.AgentID, &c.ExperienceType, &c.ExperienceCount, &c.Stage, &c.Level, &c.Aggregate, &changes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		if err := json.Unmarshal([]byte(changes), &c.Changes); err != nil {
			return nil, fmt.Errorf("decode changes for cycle %d: %w", c.ID, err)
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// CycleSnapshot returns the state recorded with a cycle, or nil if the cycle
// does not exist.
func (db *DB) CycleSnapshot(id int64) (*vitality.State, error) {
	var snap []byte
	err := db.QueryRow(`SELECT snapshot FROM vitality_cycles WHERE id = ?`, id).Scan(&snap)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	st, err := DecodeSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	return &st, nil
}

// LoggedModification is one row of the modification audit table.
type LoggedModification struct {
	selfmod.Modification
	AgentID string `json:"agent_id"`
	Allowed bool   `json:"allowed"`
}

// LogModification stores a modification attempt. Denied attempts are kept
// too so the audit shows what an agent tried.
func (db *DB) LogModification(agentID string, m selfmod.Modification, allowed bool) error {
	_, err := db.Exec(`
		INSERT INTO modification_log (agent_id, field, old_value, new_value, reason, allowed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, agentID, m.Field, m.Before, m.After, m.Reason, allowed, m.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert modification: %w", err)
	}
	return nil
}

// Modifications returns an agent's logged modifications, newest first.
func (db *DB) Modifications(agentID string, limit int) ([]LoggedModification, error) {
	rows, err := db.Query(`
		SELECT field, COALESCE(old_value, ''), COALESCE(new_value, ''), COALESCE(reason, ''), allowed, created_at
		FROM modification_log WHERE agent_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("get modifications: %w", err)
	}
	defer rows.Close()

	var out []LoggedModification
	for rows.Next() {
		var m LoggedModification
		var at int64
		if err := rows.Scan(&m.Field, &m.Before, &m.After, &m.Reason, &m.Allowed, &at); err != nil {
			return nil, fmt.Errorf("scan modification: %w", err)
		}
		m.AgentID = agentID
		m.Timestamp = time.UnixMilli(at).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
