// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"io"

	"github.com/netprog/p4route-ctrl/pkg/session"
)

// EntryResult is the outcome of one derived entry. Err nil means the
// mutation was acknowledged by the device.
type EntryResult struct {
	Record RoutingRecord
	Table  string
	Err    error
}

func (r EntryResult) Installed() bool { return r.Err == nil }

// InstallReport accumulates the outcome of one whole batch.
type InstallReport struct {
	ID      string
	Op      session.Op
	Results []EntryResult
}

func (r *InstallReport) add(rec RoutingRecord, table string, err error) {
	r.Results = append(r.Results, EntryResult{Record: rec, Table: table, Err: err})
}

func (r *InstallReport) Total() int { return len(r.Results) }

func (r *InstallReport) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func (r *InstallReport) Failures() []EntryResult {
	var failed []EntryResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// WriteSummary renders the operator-facing outcome: totals first, then one
// line per failure naming the offending record and the error.
func (r *InstallReport) WriteSummary(w io.Writer) {
	failed := r.FailedCount()
	fmt.Fprintf(w, "%s batch: %d entries total, %d failed\n", r.Op, r.Total(), failed)
	for _, res := range r.Failures() {
		rec := res.Record
		fmt.Fprintf(w, "  line %d (%s/%d via %s): table %s: %v\n",
			rec.Line, rec.Prefix, rec.PrefixLen, rec.NextHop, res.Table, res.Err)
	}
}
