// SPDX-License-Identifier: Apache-2.0

package entrystore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/pkg/entrystore"
)

func entryWithValue(v byte) *p4_v1.TableEntry {
	return &p4_v1.TableEntry{
		TableId: 7,
		Match: []*p4_v1.FieldMatch{
			{
				FieldId: 1,
				FieldMatchType: &p4_v1.FieldMatch_Exact_{
					Exact: &p4_v1.FieldMatch_Exact{Value: []byte{v}},
				},
			},
		},
	}
}

func TestPutAndEntries(t *testing.T) {
	store, err := entrystore.New("gomap", "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("MyIngress.ipv4_route", entryWithValue(1)))
	require.NoError(t, store.Put("MyIngress.ipv4_route", entryWithValue(2)))
	// Same entry twice stays one record.
	require.NoError(t, store.Put("MyIngress.ipv4_route", entryWithValue(1)))

	entries, err := store.Entries("MyIngress.ipv4_route")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, proto.Equal(entries[0], entryWithValue(1)))
	assert.True(t, proto.Equal(entries[1], entryWithValue(2)))

	other, err := store.Entries("MyIngress.arp_table")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRemove(t *testing.T) {
	store, err := entrystore.New("gomap", "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("MyIngress.ipv4_route", entryWithValue(1)))
	require.NoError(t, store.Put("MyIngress.ipv4_route", entryWithValue(2)))
	require.NoError(t, store.Remove("MyIngress.ipv4_route", entryWithValue(1)))

	entries, err := store.Entries("MyIngress.ipv4_route")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, proto.Equal(entries[0], entryWithValue(2)))

	// Removing an entry that was never recorded is fine.
	require.NoError(t, store.Remove("MyIngress.ipv4_route", entryWithValue(9)))
}

func TestUnknownBackend(t *testing.T) {
	_, err := entrystore.New("etcd", "")
	assert.Error(t, err)
}
