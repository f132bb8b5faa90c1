// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"errors"
	"testing"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/netprog/p4route-ctrl/internal/testutil"
	"github.com/netprog/p4route-ctrl/pkg/codec"
	"github.com/netprog/p4route-ctrl/pkg/schema"
)

func routeDescriptor() codec.TableEntryDescriptor {
	return codec.TableEntryDescriptor{
		Table: "MyIngress.ipv4_route",
		Match: []codec.MatchFieldValue{
			{Name: "hdr.ipv4.dst_ipAddr", Kind: codec.MatchPrefix, Value: []byte{10, 0, 1, 0}, PrefixLen: 24},
		},
		Action: "MyIngress.forward_to_next_hop",
		Params: []codec.ActionParamValue{
			{Name: "next_hop", Value: []byte{10, 0, 1, 1}},
		},
	}
}

func TestEncode(t *testing.T) {
	cat := testutil.RouterCatalog()

	entry, err := codec.Encode(routeDescriptor(), cat)
	require.NoError(t, err)

	assert.Equal(t, uint32(testutil.TableIPv4Route), entry.TableId)
	require.Len(t, entry.Match, 1)
	lpm := entry.Match[0].GetLpm()
	require.NotNil(t, lpm)
	assert.Equal(t, []byte{10, 0, 1, 0}, lpm.Value)
	assert.Equal(t, int32(24), lpm.PrefixLen)

	action := entry.GetAction().GetAction()
	require.NotNil(t, action)
	assert.Equal(t, uint32(testutil.ActionForwardToNextHop), action.ActionId)
	require.Len(t, action.Params, 1)
	assert.Equal(t, []byte{10, 0, 1, 1}, action.Params[0].Value)
}

func TestEncodeDeterministic(t *testing.T) {
	cat := testutil.RouterCatalog()

	first, err := codec.Encode(routeDescriptor(), cat)
	require.NoError(t, err)
	second, err := codec.Encode(routeDescriptor(), cat)
	require.NoError(t, err)

	a, err := proto.Marshal(first)
	require.NoError(t, err)
	b, err := proto.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeMasksPrefixWithoutMutating(t *testing.T) {
	cat := testutil.RouterCatalog()

	d := routeDescriptor()
	d.Match[0].Value = []byte{10, 0, 1, 255}
	entry, err := codec.Encode(d, cat)
	require.NoError(t, err)

	assert.Equal(t, []byte{10, 0, 1, 0}, entry.Match[0].GetLpm().Value)
	assert.Equal(t, []byte{10, 0, 1, 255}, d.Match[0].Value, "caller's value must stay untouched")
}

func TestEncodeWidthEnforcement(t *testing.T) {
	cat := testutil.RouterCatalog()

	tests := []struct {
		name   string
		mutate func(*codec.TableEntryDescriptor)
	}{
		{"match value too long", func(d *codec.TableEntryDescriptor) {
			d.Match[0].Value = []byte{10, 0, 1, 0, 0}
		}},
		{"match value too short", func(d *codec.TableEntryDescriptor) {
			d.Match[0].Value = []byte{10, 0, 1}
		}},
		{"prefix length over field width", func(d *codec.TableEntryDescriptor) {
			d.Match[0].PrefixLen = 33
		}},
		{"param value too long", func(d *codec.TableEntryDescriptor) {
			d.Params[0].Value = []byte{10, 0, 1, 1, 9}
		}},
		{"empty param value", func(d *codec.TableEntryDescriptor) {
			d.Params[0].Value = nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := routeDescriptor()
			tt.mutate(&d)
			_, err := codec.Encode(d, cat)
			assert.True(t, errors.Is(err, codec.ErrWidthMismatch), "got %v", err)
		})
	}
}

func TestEncodeUnknownNames(t *testing.T) {
	cat := testutil.RouterCatalog()

	tests := []struct {
		name   string
		mutate func(*codec.TableEntryDescriptor)
	}{
		{"unknown table", func(d *codec.TableEntryDescriptor) { d.Table = "MyIngress.nope" }},
		{"unknown field", func(d *codec.TableEntryDescriptor) { d.Match[0].Name = "hdr.ipv4.nope" }},
		{"unknown action", func(d *codec.TableEntryDescriptor) { d.Action = "MyIngress.nope" }},
		{"unknown param", func(d *codec.TableEntryDescriptor) { d.Params[0].Name = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := routeDescriptor()
			tt.mutate(&d)
			_, err := codec.Encode(d, cat)
			assert.True(t, errors.Is(err, schema.ErrUnknownName), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cat := testutil.RouterCatalog()

	descriptors := []codec.TableEntryDescriptor{
		routeDescriptor(),
		{
			Table: "MyIngress.arp_table",
			Match: []codec.MatchFieldValue{
				{Name: "meta.next_hop", Kind: codec.MatchExact, Value: []byte{10, 0, 1, 1}},
			},
			Action: "MyIngress.change_dst_mac",
			Params: []codec.ActionParamValue{
				{Name: "dst_mac", Value: []byte{8, 0, 0, 0, 1, 0x11}},
			},
		},
		{
			Table: "MyIngress.dmac_forward",
			Match: []codec.MatchFieldValue{
				{Name: "hdr.ethernet.dest_macAddr", Kind: codec.MatchExact, Value: []byte{8, 0, 0, 0, 1, 0x11}},
			},
			Action: "MyIngress.forward_to_port",
			Params: []codec.ActionParamValue{
				{Name: "egress_port", Value: []byte{0, 1}},
				{Name: "egress_mac", Value: []byte{8, 0, 0, 0, 1, 0}},
			},
		},
	}

	for _, d := range descriptors {
		entry, err := codec.Encode(d, cat)
		require.NoError(t, err)
		back, err := codec.Decode(entry, cat)
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}
}

func TestDecodeUnknownIDs(t *testing.T) {
	cat := testutil.RouterCatalog()

	entry, err := codec.Encode(routeDescriptor(), cat)
	require.NoError(t, err)

	stale := proto.Clone(entry).(*p4_v1.TableEntry)
	stale.TableId = 99999
	_, err = codec.Decode(stale, cat)
	assert.True(t, errors.Is(err, schema.ErrUnknownID), "got %v", err)

	stale = proto.Clone(entry).(*p4_v1.TableEntry)
	stale.Match[0].FieldId = 42
	_, err = codec.Decode(stale, cat)
	assert.True(t, errors.Is(err, schema.ErrUnknownID), "got %v", err)

	stale = proto.Clone(entry).(*p4_v1.TableEntry)
	stale.GetAction().GetAction().ActionId = 42
	_, err = codec.Decode(stale, cat)
	assert.True(t, errors.Is(err, schema.ErrUnknownID), "got %v", err)
}
