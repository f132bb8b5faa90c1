// SPDX-License-Identifier: Apache-2.0

package session

import (
	"io"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// EntryStream iterates the table entries of one read RPC. Each response
// chunk may carry several entities; non-table entities are skipped.
type EntryStream struct {
	rc  p4_v1.P4Runtime_ReadClient
	buf []*p4_v1.TableEntry
}

// Next returns the next entry, or io.EOF when the device has sent
// everything.
func (es *EntryStream) Next() (*p4_v1.TableEntry, error) {
	for len(es.buf) == 0 {
		resp, err := es.rc.Recv()
		if err != nil {
			// io.EOF included: the read stream ended.
			return nil, err
		}
		for _, entity := range resp.Entities {
			if te := entity.GetTableEntry(); te != nil {
				es.buf = append(es.buf, te)
			}
		}
	}
	entry := es.buf[0]
	es.buf = es.buf[1:]
	return entry, nil
}

// All drains the stream.
func (es *EntryStream) All() ([]*p4_v1.TableEntry, error) {
	var entries []*p4_v1.TableEntry
	for {
		entry, err := es.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
}
