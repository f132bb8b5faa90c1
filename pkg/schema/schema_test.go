// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"errors"
	"testing"

	p4config "github.com/p4lang/p4runtime/go/p4/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netprog/p4route-ctrl/internal/testutil"
	"github.com/netprog/p4route-ctrl/pkg/schema"
)

func TestTableLookup(t *testing.T) {
	cat := testutil.RouterCatalog()

	id, err := cat.TableID("MyIngress.ipv4_route")
	require.NoError(t, err)
	assert.Equal(t, uint32(testutil.TableIPv4Route), id)

	name, err := cat.TableName(testutil.TableArp)
	require.NoError(t, err)
	assert.Equal(t, "MyIngress.arp_table", name)

	_, err = cat.TableID("MyIngress.no_such_table")
	assert.True(t, errors.Is(err, schema.ErrUnknownName))

	_, err = cat.TableName(12345)
	assert.True(t, errors.Is(err, schema.ErrUnknownID))
}

func TestMatchFieldLookup(t *testing.T) {
	cat := testutil.RouterCatalog()

	mf, err := cat.MatchField("MyIngress.ipv4_route", "hdr.ipv4.dst_ipAddr")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), mf.ID)
	assert.Equal(t, int32(32), mf.Bitwidth)
	assert.Equal(t, p4config.MatchField_LPM, mf.Type)

	back, err := cat.MatchFieldByID(testutil.TableIPv4Route, 1)
	require.NoError(t, err)
	assert.Equal(t, "hdr.ipv4.dst_ipAddr", back.Name)

	_, err = cat.MatchField("MyIngress.ipv4_route", "hdr.ipv4.ttl")
	assert.True(t, errors.Is(err, schema.ErrUnknownName))

	_, err = cat.MatchFieldByID(testutil.TableIPv4Route, 9)
	assert.True(t, errors.Is(err, schema.ErrUnknownID))
}

func TestActionLookup(t *testing.T) {
	cat := testutil.RouterCatalog()

	id, err := cat.ActionID("MyIngress.forward_to_port")
	require.NoError(t, err)
	assert.Equal(t, uint32(testutil.ActionForwardToPort), id)

	p, err := cat.ActionParam("MyIngress.forward_to_port", "egress_mac")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), p.ID)
	assert.Equal(t, int32(48), p.Bitwidth)

	back, err := cat.ActionParamByID(testutil.ActionForwardToPort, 1)
	require.NoError(t, err)
	assert.Equal(t, "egress_port", back.Name)
	assert.Equal(t, int32(9), back.Bitwidth)

	_, err = cat.ActionID("MyIngress.drop_everything")
	assert.True(t, errors.Is(err, schema.ErrUnknownName))

	_, err = cat.ActionParamByID(testutil.ActionForwardToPort, 7)
	assert.True(t, errors.Is(err, schema.ErrUnknownID))
}
