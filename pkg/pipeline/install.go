// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/pkg/codec"
	"github.com/netprog/p4route-ctrl/pkg/schema"
	"github.com/netprog/p4route-ctrl/pkg/session"
)

// EntryWriter is the slice of the session the pipeline needs.
// *session.Session implements it.
type EntryWriter interface {
	Status() session.Status
	Write(ctx context.Context, entry *p4_v1.TableEntry, op session.Op) error
}

// Recorder shadows successful mutations for later verification.
// *entrystore.Store implements it; nil disables recording.
type Recorder interface {
	Put(table string, entry *p4_v1.TableEntry) error
	Remove(table string, entry *p4_v1.TableEntry) error
}

// Install writes every record's derived entries in input order, route
// before neighbor before forward. Per-entry failures are accumulated, never
// fatal: the report covers the whole batch. Once mastership is lost or the
// context is cancelled, remaining entries fail locally without further
// RPCs; entries already written stay installed.
func Install(ctx context.Context, w EntryWriter, cat *schema.Catalog, records []RoutingRecord, rec Recorder) *InstallReport {
	return run(ctx, w, cat, records, rec, session.OpInsert)
}

// Uninstall removes a previously installed batch of records, each record's
// entries in reverse dependency order.
func Uninstall(ctx context.Context, w EntryWriter, cat *schema.Catalog, records []RoutingRecord, rec Recorder) *InstallReport {
	return run(ctx, w, cat, records, rec, session.OpDelete)
}

func run(ctx context.Context, w EntryWriter, cat *schema.Catalog, records []RoutingRecord, rec Recorder, op session.Op) *InstallReport {
	report := &InstallReport{ID: uuid.NewString(), Op: op}

	for _, record := range records {
		descs := DeriveEntries(record).All()
		if op == session.OpDelete {
			descs[0], descs[2] = descs[2], descs[0]
		}

		// A record is encoded as a unit: if any of its three entries is
		// malformed the record is not installed at all, so a bad routing
		// line never leaves half its rules behind.
		encoded, badTable, encErr := encodeAll(descs, cat)
		if encErr != nil {
			for _, d := range descs {
				err := encErr
				if d.Table != badTable {
					err = fmt.Errorf("skipped, entry for table %s did not encode: %w", badTable, encErr)
				}
				report.add(record, d.Table, err)
			}
			continue
		}

		for i, d := range descs {
			if err := ctx.Err(); err != nil {
				report.add(record, d.Table, err)
				continue
			}
			if w.Status() == session.Lost {
				// Mastership is gone; do not hammer the device.
				report.add(record, d.Table, fmt.Errorf("skipped: %w", session.ErrNotMaster))
				continue
			}
			if err := w.Write(ctx, encoded[i], op); err != nil {
				report.add(record, d.Table, err)
				continue
			}
			report.add(record, d.Table, nil)
			record.applyRecorder(rec, d.Table, encoded[i], op)
		}
	}

	log.Infof("%s batch %s: %d/%d entries succeeded", report.Op, report.ID, report.Total()-report.FailedCount(), report.Total())
	return report
}

func (r RoutingRecord) applyRecorder(rec Recorder, table string, entry *p4_v1.TableEntry, op session.Op) {
	if rec == nil {
		return
	}
	var err error
	if op == session.OpDelete {
		err = rec.Remove(table, entry)
	} else {
		err = rec.Put(table, entry)
	}
	if err != nil {
		log.Warnf("shadow store update for table %s (spec line %d): %v", table, r.Line, err)
	}
}

func encodeAll(descs [3]codec.TableEntryDescriptor, cat *schema.Catalog) ([3]*p4_v1.TableEntry, string, error) {
	var encoded [3]*p4_v1.TableEntry
	for i, d := range descs {
		entry, err := codec.Encode(d, cat)
		if err != nil {
			return encoded, d.Table, err
		}
		encoded[i] = entry
	}
	return encoded, "", nil
}
