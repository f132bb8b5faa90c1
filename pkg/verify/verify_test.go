// SPDX-License-Identifier: Apache-2.0

package verify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/internal/testutil"
	"github.com/netprog/p4route-ctrl/pkg/codec"
	"github.com/netprog/p4route-ctrl/pkg/entrystore"
	"github.com/netprog/p4route-ctrl/pkg/schema"
	"github.com/netprog/p4route-ctrl/pkg/verify"
)

type fakeReader struct {
	entries map[uint32][]*p4_v1.TableEntry
	err     error
}

func (f *fakeReader) ReadTableAll(_ context.Context, tableID uint32) ([]*p4_v1.TableEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[tableID], nil
}

func mustEncode(t *testing.T, d codec.TableEntryDescriptor) *p4_v1.TableEntry {
	t.Helper()
	cat := testutil.RouterCatalog()
	entry, err := codec.Encode(d, cat)
	require.NoError(t, err)
	return entry
}

func routeDescriptor(lastOctet byte) codec.TableEntryDescriptor {
	return codec.TableEntryDescriptor{
		Table: "MyIngress.ipv4_route",
		Match: []codec.MatchFieldValue{
			{Name: "hdr.ipv4.dst_ipAddr", Kind: codec.MatchPrefix, Value: []byte{10, 0, lastOctet, 0}, PrefixLen: 24},
		},
		Action: "MyIngress.forward_to_next_hop",
		Params: []codec.ActionParamValue{
			{Name: "next_hop", Value: []byte{10, 0, lastOctet, 1}},
		},
	}
}

func TestDumpTable(t *testing.T) {
	cat := testutil.RouterCatalog()
	reader := &fakeReader{entries: map[uint32][]*p4_v1.TableEntry{
		testutil.TableIPv4Route: {mustEncode(t, routeDescriptor(1))},
	}}

	lines, err := verify.DumpTable(context.Background(), reader, cat, "MyIngress.ipv4_route")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t,
		"hdr.ipv4.dst_ipAddr:0a000100/24 | MyIngress.forward_to_next_hop | next_hop:0a000101",
		lines[0])
}

func TestDumpTableUnknownName(t *testing.T) {
	cat := testutil.RouterCatalog()
	reader := &fakeReader{}

	_, err := verify.DumpTable(context.Background(), reader, cat, "MyIngress.arp_table_entry")
	assert.True(t, errors.Is(err, schema.ErrUnknownName))
}

func TestPrintTableFraming(t *testing.T) {
	cat := testutil.RouterCatalog()
	reader := &fakeReader{entries: map[uint32][]*p4_v1.TableEntry{
		testutil.TableIPv4Route: {mustEncode(t, routeDescriptor(1))},
	}}

	var sb strings.Builder
	require.NoError(t, verify.PrintTable(context.Background(), &sb, reader, cat, "MyIngress.ipv4_route"))
	out := sb.String()
	assert.Contains(t, out, "Table Entries of MyIngress.ipv4_route")
	assert.Contains(t, out, strings.Repeat("-", 64))
	assert.Contains(t, out, "next_hop:0a000101")
}

func TestDiff(t *testing.T) {
	cat := testutil.RouterCatalog()

	store, err := entrystore.New("gomap", "")
	require.NoError(t, err)
	defer store.Close()

	installed := mustEncode(t, routeDescriptor(1))
	vanished := mustEncode(t, routeDescriptor(2))
	require.NoError(t, store.Put("MyIngress.ipv4_route", installed))
	require.NoError(t, store.Put("MyIngress.ipv4_route", vanished))

	intruder := mustEncode(t, routeDescriptor(9))
	reader := &fakeReader{entries: map[uint32][]*p4_v1.TableEntry{
		testutil.TableIPv4Route: {installed, intruder},
	}}

	report, err := verify.Diff(context.Background(), reader, cat, store, "MyIngress.ipv4_route")
	require.NoError(t, err)
	assert.False(t, report.Clean())
	require.Len(t, report.Missing, 1)
	assert.Contains(t, report.Missing[0], "0a000200/24")
	require.Len(t, report.Unexpected, 1)
	assert.Contains(t, report.Unexpected[0], "0a000900/24")
}

func TestDiffClean(t *testing.T) {
	cat := testutil.RouterCatalog()

	store, err := entrystore.New("gomap", "")
	require.NoError(t, err)
	defer store.Close()

	entry := mustEncode(t, routeDescriptor(1))
	require.NoError(t, store.Put("MyIngress.ipv4_route", entry))
	reader := &fakeReader{entries: map[uint32][]*p4_v1.TableEntry{
		testutil.TableIPv4Route: {entry},
	}}

	report, err := verify.Diff(context.Background(), reader, cat, store, "MyIngress.ipv4_route")
	require.NoError(t, err)
	assert.True(t, report.Clean())

	var sb strings.Builder
	report.WriteSummary(&sb)
	assert.Contains(t, sb.String(), "matches installed state")
}
