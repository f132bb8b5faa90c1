// SPDX-License-Identifier: Apache-2.0

// Package schema resolves names from a compiled P4 program's P4Info to the
// numeric IDs and field widths the device expects on the wire.
package schema

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/prototext"

	p4config "github.com/p4lang/p4runtime/go/p4/config/v1"
)

var (
	ErrUnknownName = errors.New("name not found in p4info")
	ErrUnknownID   = errors.New("id not found in p4info")
)

// MatchFieldInfo is the typed result of a match-field lookup.
type MatchFieldInfo struct {
	ID       uint32
	Name     string
	Bitwidth int32
	Type     p4config.MatchField_MatchType
}

// ActionParamInfo is the typed result of an action-parameter lookup.
type ActionParamInfo struct {
	ID       uint32
	Name     string
	Bitwidth int32
}

// Catalog indexes one P4Info message for lookup in both directions.
// A Catalog is immutable after New and safe for concurrent readers.
type Catalog struct {
	info        *p4config.P4Info
	tables      map[string]*p4config.Table
	tablesByID  map[uint32]*p4config.Table
	actions     map[string]*p4config.Action
	actionsByID map[uint32]*p4config.Action
}

// Load reads a p4c-generated P4Info file in prototext format.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading p4info %s: %w", path, err)
	}
	var info p4config.P4Info
	if err := prototext.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing p4info %s: %w", path, err)
	}
	log.Infof("Loaded p4info %s: %d tables, %d actions", path, len(info.Tables), len(info.Actions))
	return New(&info), nil
}

// New builds a Catalog over an already-parsed P4Info.
func New(info *p4config.P4Info) *Catalog {
	c := &Catalog{
		info:        info,
		tables:      make(map[string]*p4config.Table),
		tablesByID:  make(map[uint32]*p4config.Table),
		actions:     make(map[string]*p4config.Action),
		actionsByID: make(map[uint32]*p4config.Action),
	}
	for _, t := range info.Tables {
		c.tables[t.Preamble.Name] = t
		c.tablesByID[t.Preamble.Id] = t
	}
	for _, a := range info.Actions {
		c.actions[a.Preamble.Name] = a
		c.actionsByID[a.Preamble.Id] = a
	}
	return c
}

// P4Info returns the underlying message, needed when pushing the
// forwarding pipeline config.
func (c *Catalog) P4Info() *p4config.P4Info {
	return c.info
}

func (c *Catalog) TableID(name string) (uint32, error) {
	t, ok := c.tables[name]
	if !ok {
		return 0, fmt.Errorf("table %q: %w", name, ErrUnknownName)
	}
	return t.Preamble.Id, nil
}

func (c *Catalog) TableName(id uint32) (string, error) {
	t, ok := c.tablesByID[id]
	if !ok {
		return "", fmt.Errorf("table id %d: %w", id, ErrUnknownID)
	}
	return t.Preamble.Name, nil
}

// MatchField looks up one match key of a table by name.
func (c *Catalog) MatchField(table, name string) (MatchFieldInfo, error) {
	t, ok := c.tables[table]
	if !ok {
		return MatchFieldInfo{}, fmt.Errorf("table %q: %w", table, ErrUnknownName)
	}
	for _, mf := range t.MatchFields {
		if mf.Name == name {
			return MatchFieldInfo{ID: mf.Id, Name: mf.Name, Bitwidth: mf.Bitwidth, Type: mf.GetMatchType()}, nil
		}
	}
	return MatchFieldInfo{}, fmt.Errorf("match field %q of table %q: %w", name, table, ErrUnknownName)
}

// MatchFieldByID looks up one match key of a table by its wire ID.
func (c *Catalog) MatchFieldByID(tableID, fieldID uint32) (MatchFieldInfo, error) {
	t, ok := c.tablesByID[tableID]
	if !ok {
		return MatchFieldInfo{}, fmt.Errorf("table id %d: %w", tableID, ErrUnknownID)
	}
	for _, mf := range t.MatchFields {
		if mf.Id == fieldID {
			return MatchFieldInfo{ID: mf.Id, Name: mf.Name, Bitwidth: mf.Bitwidth, Type: mf.GetMatchType()}, nil
		}
	}
	return MatchFieldInfo{}, fmt.Errorf("match field id %d of table id %d: %w", fieldID, tableID, ErrUnknownID)
}

func (c *Catalog) ActionID(name string) (uint32, error) {
	a, ok := c.actions[name]
	if !ok {
		return 0, fmt.Errorf("action %q: %w", name, ErrUnknownName)
	}
	return a.Preamble.Id, nil
}

func (c *Catalog) ActionName(id uint32) (string, error) {
	a, ok := c.actionsByID[id]
	if !ok {
		return "", fmt.Errorf("action id %d: %w", id, ErrUnknownID)
	}
	return a.Preamble.Name, nil
}

// ActionParam looks up one parameter of an action by name.
func (c *Catalog) ActionParam(action, name string) (ActionParamInfo, error) {
	a, ok := c.actions[action]
	if !ok {
		return ActionParamInfo{}, fmt.Errorf("action %q: %w", action, ErrUnknownName)
	}
	for _, p := range a.Params {
		if p.Name == name {
			return ActionParamInfo{ID: p.Id, Name: p.Name, Bitwidth: p.Bitwidth}, nil
		}
	}
	return ActionParamInfo{}, fmt.Errorf("param %q of action %q: %w", name, action, ErrUnknownName)
}

// ActionParamByID looks up one parameter of an action by its wire ID.
func (c *Catalog) ActionParamByID(actionID, paramID uint32) (ActionParamInfo, error) {
	a, ok := c.actionsByID[actionID]
	if !ok {
		return ActionParamInfo{}, fmt.Errorf("action id %d: %w", actionID, ErrUnknownID)
	}
	for _, p := range a.Params {
		if p.Id == paramID {
			return ActionParamInfo{ID: p.Id, Name: p.Name, Bitwidth: p.Bitwidth}, nil
		}
	}
	return ActionParamInfo{}, fmt.Errorf("param id %d of action id %d: %w", paramID, actionID, ErrUnknownID)
}
