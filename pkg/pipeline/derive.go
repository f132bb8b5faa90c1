// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/binary"
	"net"

	"github.com/netprog/p4route-ctrl/pkg/codec"
)

// Table and action names of the router pipeline. Write-time names are
// canonical; read-back uses the same set.
const (
	TableIPv4Route   = "MyIngress.ipv4_route"
	TableArp         = "MyIngress.arp_table"
	TableDmacForward = "MyIngress.dmac_forward"

	ActionForwardToNextHop = "MyIngress.forward_to_next_hop"
	ActionChangeDstMac     = "MyIngress.change_dst_mac"
	ActionForwardToPort    = "MyIngress.forward_to_port"

	fieldDstIP   = "hdr.ipv4.dst_ipAddr"
	fieldNextHop = "meta.next_hop"
	fieldDstMac  = "hdr.ethernet.dest_macAddr"

	paramNextHop = "next_hop"
	paramDstMac  = "dst_mac"
	paramEgrPort = "egress_port"
	paramEgrMac  = "egress_mac"
)

// DerivedEntries is the fixed triple one routing record expands to. Install
// order is Route, Neighbor, Forward.
type DerivedEntries struct {
	Route    codec.TableEntryDescriptor
	Neighbor codec.TableEntryDescriptor
	Forward  codec.TableEntryDescriptor
}

func (d DerivedEntries) All() [3]codec.TableEntryDescriptor {
	return [3]codec.TableEntryDescriptor{d.Route, d.Neighbor, d.Forward}
}

func ipv4Bytes(addr string) []byte {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}

func macBytes(addr string) []byte {
	hw, err := net.ParseMAC(addr)
	if err != nil {
		return nil
	}
	return hw
}

func portBytes(port int) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(port))
	return b
}

// DeriveEntries expands one record into its route lookup, next-hop MAC
// rewrite and L2 forward entries. Pure derivation, no schema involved;
// address fields that fail to parse yield empty values which the codec
// rejects as width mismatches.
func DeriveEntries(rec RoutingRecord) DerivedEntries {
	return DerivedEntries{
		Route: codec.TableEntryDescriptor{
			Table: TableIPv4Route,
			Match: []codec.MatchFieldValue{
				{Name: fieldDstIP, Kind: codec.MatchPrefix, Value: ipv4Bytes(rec.Prefix), PrefixLen: int32(rec.PrefixLen)},
			},
			Action: ActionForwardToNextHop,
			Params: []codec.ActionParamValue{
				{Name: paramNextHop, Value: ipv4Bytes(rec.NextHop)},
			},
		},
		Neighbor: codec.TableEntryDescriptor{
			Table: TableArp,
			Match: []codec.MatchFieldValue{
				{Name: fieldNextHop, Kind: codec.MatchExact, Value: ipv4Bytes(rec.NextHop)},
			},
			Action: ActionChangeDstMac,
			Params: []codec.ActionParamValue{
				{Name: paramDstMac, Value: macBytes(rec.NextHopMAC)},
			},
		},
		Forward: codec.TableEntryDescriptor{
			Table: TableDmacForward,
			Match: []codec.MatchFieldValue{
				{Name: fieldDstMac, Kind: codec.MatchExact, Value: macBytes(rec.NextHopMAC)},
			},
			Action: ActionForwardToPort,
			Params: []codec.ActionParamValue{
				{Name: paramEgrPort, Value: portBytes(rec.EgressPort)},
				{Name: paramEgrMac, Value: macBytes(rec.EgressMAC)},
			},
		},
	}
}
