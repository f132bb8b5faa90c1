// SPDX-License-Identifier: Apache-2.0

// Package verify renders installed table contents for operator inspection
// and diffs device state against the controller's shadow store.
package verify

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/pkg/codec"
	"github.com/netprog/p4route-ctrl/pkg/schema"
)

// TableReader is the slice of the session the reader needs.
// *session.Session implements it.
type TableReader interface {
	ReadTableAll(ctx context.Context, tableID uint32) ([]*p4_v1.TableEntry, error)
}

// StoredEntries is implemented by *entrystore.Store.
type StoredEntries interface {
	Entries(table string) ([]*p4_v1.TableEntry, error)
}

// FormatEntry renders one decoded entry as
//
//	field:hexValue ... | action | param:hexValue ...
//
// with prefix matches carrying their /length.
func FormatEntry(d codec.TableEntryDescriptor) string {
	var sb strings.Builder
	for i, m := range d.Match {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s:%s", m.Name, hex.EncodeToString(m.Value))
		if m.Kind == codec.MatchPrefix {
			fmt.Fprintf(&sb, "/%d", m.PrefixLen)
		}
	}
	fmt.Fprintf(&sb, " | %s |", d.Action)
	for _, p := range d.Params {
		fmt.Fprintf(&sb, " %s:%s", p.Name, hex.EncodeToString(p.Value))
	}
	return sb.String()
}

// DumpTable reads every entry of the named table and renders it. The order
// is whatever the device returned; treat the result as a set.
func DumpTable(ctx context.Context, r TableReader, cat *schema.Catalog, tableName string) ([]string, error) {
	tableID, err := cat.TableID(tableName)
	if err != nil {
		return nil, err
	}
	entries, err := r.ReadTableAll(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("reading table %q: %w", tableName, err)
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		d, err := codec.Decode(entry, cat)
		if err != nil {
			return nil, fmt.Errorf("decoding entry of table %q: %w", tableName, err)
		}
		lines = append(lines, FormatEntry(d))
	}
	return lines, nil
}

// PrintTable writes a framed dump of one table, one entry per line.
func PrintTable(ctx context.Context, w io.Writer, r TableReader, cat *schema.Catalog, tableName string) error {
	lines, err := DumpTable(ctx, r, cat, tableName)
	if err != nil {
		return err
	}
	rule := strings.Repeat("-", 64)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Table Entries of", tableName)
	fmt.Fprintln(w, "match_field: value | action | action_param: value")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, rule)
	return nil
}

// DiffReport compares device read-back with the shadow store for one table.
type DiffReport struct {
	Table string
	// Missing entries were installed by this controller but are absent on
	// the device; Unexpected entries are on the device but were never
	// recorded.
	Missing    []string
	Unexpected []string
}

func (d DiffReport) Clean() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0
}

func (d DiffReport) WriteSummary(w io.Writer) {
	if d.Clean() {
		fmt.Fprintf(w, "table %s: device state matches installed state\n", d.Table)
		return
	}
	fmt.Fprintf(w, "table %s: %d missing, %d unexpected\n", d.Table, len(d.Missing), len(d.Unexpected))
	for _, line := range d.Missing {
		fmt.Fprintf(w, "  missing:    %s\n", line)
	}
	for _, line := range d.Unexpected {
		fmt.Fprintf(w, "  unexpected: %s\n", line)
	}
}

// Diff reads the named table back and compares it, as a set, against what
// the shadow store says this controller installed.
func Diff(ctx context.Context, r TableReader, cat *schema.Catalog, store StoredEntries, tableName string) (DiffReport, error) {
	report := DiffReport{Table: tableName}

	deviceLines, err := DumpTable(ctx, r, cat, tableName)
	if err != nil {
		return report, err
	}

	stored, err := store.Entries(tableName)
	if err != nil {
		return report, err
	}
	storedLines := make([]string, 0, len(stored))
	for _, entry := range stored {
		d, err := codec.Decode(entry, cat)
		if err != nil {
			return report, fmt.Errorf("decoding stored entry of table %q: %w", tableName, err)
		}
		storedLines = append(storedLines, FormatEntry(d))
	}

	device := toSet(deviceLines)
	installed := toSet(storedLines)
	for line := range installed {
		if !device[line] {
			report.Missing = append(report.Missing, line)
		}
	}
	for line := range device {
		if !installed[line] {
			report.Unexpected = append(report.Unexpected, line)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	return report, nil
}

func toSet(lines []string) map[string]bool {
	set := make(map[string]bool, len(lines))
	for _, line := range lines {
		set[line] = true
	}
	return set
}
