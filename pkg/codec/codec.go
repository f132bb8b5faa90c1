// SPDX-License-Identifier: Apache-2.0

// Package codec translates semantic table-entry descriptors to and from the
// P4Runtime wire representation. The translation is pure: it needs a schema
// catalog for ID and width lookups but never touches a device session.
package codec

import (
	"errors"
	"fmt"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/pkg/schema"
)

// ErrWidthMismatch reports a value whose byte length does not match the
// width the schema declares for its field or parameter. Values are never
// padded or truncated to fit.
var ErrWidthMismatch = errors.New("value width does not match schema width")

type MatchKind uint8

const (
	MatchExact MatchKind = iota
	MatchPrefix
)

// MatchFieldValue is one named match key of a table entry. PrefixLen is
// meaningful only for MatchPrefix.
type MatchFieldValue struct {
	Name      string
	Kind      MatchKind
	Value     []byte
	PrefixLen int32
}

// ActionParamValue is one named action parameter.
type ActionParamValue struct {
	Name  string
	Value []byte
}

// TableEntryDescriptor is the semantic form of one match-action rule,
// everything named by its P4 program name. Built once, encoded once.
type TableEntryDescriptor struct {
	Table  string
	Match  []MatchFieldValue
	Action string
	Params []ActionParamValue
}

func byteWidth(bitwidth int32) int {
	return int(bitwidth+7) / 8
}

// maskPrefix zeroes the bits beyond plen on a copy of v, so encoding never
// mutates the caller's descriptor.
func maskPrefix(v []byte, plen int32) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	full := int(plen / 8)
	if full < len(out) {
		r := plen % 8
		out[full] &= byte(0xff << (8 - r))
		for i := full + 1; i < len(out); i++ {
			out[i] = 0
		}
	}
	return out
}

// Encode resolves every name in d against the catalog and produces the wire
// entry. Identical inputs always yield a byte-identical result.
func Encode(d TableEntryDescriptor, cat *schema.Catalog) (*p4_v1.TableEntry, error) {
	tableID, err := cat.TableID(d.Table)
	if err != nil {
		return nil, err
	}

	entry := &p4_v1.TableEntry{TableId: tableID}

	for _, m := range d.Match {
		info, err := cat.MatchField(d.Table, m.Name)
		if err != nil {
			return nil, err
		}
		want := byteWidth(info.Bitwidth)
		if len(m.Value) != want {
			return nil, fmt.Errorf("field %q of table %q: got %d bytes, schema declares %d bits: %w",
				m.Name, d.Table, len(m.Value), info.Bitwidth, ErrWidthMismatch)
		}
		fm := &p4_v1.FieldMatch{FieldId: info.ID}
		switch m.Kind {
		case MatchExact:
			fm.FieldMatchType = &p4_v1.FieldMatch_Exact_{
				Exact: &p4_v1.FieldMatch_Exact{Value: m.Value},
			}
		case MatchPrefix:
			if m.PrefixLen < 0 || m.PrefixLen > info.Bitwidth {
				return nil, fmt.Errorf("field %q of table %q: prefix length %d exceeds %d bits: %w",
					m.Name, d.Table, m.PrefixLen, info.Bitwidth, ErrWidthMismatch)
			}
			fm.FieldMatchType = &p4_v1.FieldMatch_Lpm{
				Lpm: &p4_v1.FieldMatch_LPM{
					Value:     maskPrefix(m.Value, m.PrefixLen),
					PrefixLen: m.PrefixLen,
				},
			}
		default:
			return nil, fmt.Errorf("field %q of table %q: unsupported match kind %d", m.Name, d.Table, m.Kind)
		}
		entry.Match = append(entry.Match, fm)
	}

	actionID, err := cat.ActionID(d.Action)
	if err != nil {
		return nil, err
	}
	action := &p4_v1.Action{ActionId: actionID}
	for _, p := range d.Params {
		info, err := cat.ActionParam(d.Action, p.Name)
		if err != nil {
			return nil, err
		}
		if len(p.Value) != byteWidth(info.Bitwidth) {
			return nil, fmt.Errorf("param %q of action %q: got %d bytes, schema declares %d bits: %w",
				p.Name, d.Action, len(p.Value), info.Bitwidth, ErrWidthMismatch)
		}
		action.Params = append(action.Params, &p4_v1.Action_Param{ParamId: info.ID, Value: p.Value})
	}
	entry.Action = &p4_v1.TableAction{
		Type: &p4_v1.TableAction_Action{Action: action},
	}

	return entry, nil
}

// Decode is the inverse of Encode, used when rendering entries read back
// from the device. Fails if the device state references IDs the catalog
// does not know, which means the loaded p4info is stale.
func Decode(entry *p4_v1.TableEntry, cat *schema.Catalog) (TableEntryDescriptor, error) {
	var d TableEntryDescriptor

	tableName, err := cat.TableName(entry.TableId)
	if err != nil {
		return d, err
	}
	d.Table = tableName

	for _, fm := range entry.Match {
		info, err := cat.MatchFieldByID(entry.TableId, fm.FieldId)
		if err != nil {
			return d, err
		}
		switch m := fm.FieldMatchType.(type) {
		case *p4_v1.FieldMatch_Exact_:
			d.Match = append(d.Match, MatchFieldValue{Name: info.Name, Kind: MatchExact, Value: m.Exact.Value})
		case *p4_v1.FieldMatch_Lpm:
			d.Match = append(d.Match, MatchFieldValue{
				Name: info.Name, Kind: MatchPrefix, Value: m.Lpm.Value, PrefixLen: m.Lpm.PrefixLen,
			})
		default:
			return d, fmt.Errorf("field id %d of table %q: unsupported wire match type %T", fm.FieldId, tableName, fm.FieldMatchType)
		}
	}

	direct := entry.GetAction().GetAction()
	if direct == nil {
		return d, fmt.Errorf("table %q entry carries no direct action", tableName)
	}
	actionName, err := cat.ActionName(direct.ActionId)
	if err != nil {
		return d, err
	}
	d.Action = actionName
	for _, p := range direct.Params {
		info, err := cat.ActionParamByID(direct.ActionId, p.ParamId)
		if err != nil {
			return d, err
		}
		d.Params = append(d.Params, ActionParamValue{Name: info.Name, Value: p.Value})
	}

	return d, nil
}
