// SPDX-License-Identifier: Apache-2.0

// Package testutil provides fixtures shared by the package tests.
package testutil

import (
	p4config "github.com/p4lang/p4runtime/go/p4/config/v1"

	"github.com/netprog/p4route-ctrl/pkg/schema"
)

// IDs of the three_routers router program, as assigned by p4c.
const (
	TableIPv4Route   = 37375156
	TableArp         = 45595255
	TableDmacForward = 41939770

	ActionForwardToNextHop = 28792405
	ActionChangeDstMac     = 21912103
	ActionForwardToPort    = 29683729
)

// RouterP4Info builds the P4Info of the three-table router pipeline used
// throughout the tests: an LPM route table, an exact-match ARP table and an
// exact-match L2 forwarding table.
func RouterP4Info() *p4config.P4Info {
	return &p4config.P4Info{
		Tables: []*p4config.Table{
			{
				Preamble: &p4config.Preamble{Id: TableIPv4Route, Name: "MyIngress.ipv4_route", Alias: "ipv4_route"},
				MatchFields: []*p4config.MatchField{
					{
						Id: 1, Name: "hdr.ipv4.dst_ipAddr", Bitwidth: 32,
						Match: &p4config.MatchField_MatchType_{MatchType: p4config.MatchField_LPM},
					},
				},
			},
			{
				Preamble: &p4config.Preamble{Id: TableArp, Name: "MyIngress.arp_table", Alias: "arp_table"},
				MatchFields: []*p4config.MatchField{
					{
						Id: 1, Name: "meta.next_hop", Bitwidth: 32,
						Match: &p4config.MatchField_MatchType_{MatchType: p4config.MatchField_EXACT},
					},
				},
			},
			{
				Preamble: &p4config.Preamble{Id: TableDmacForward, Name: "MyIngress.dmac_forward", Alias: "dmac_forward"},
				MatchFields: []*p4config.MatchField{
					{
						Id: 1, Name: "hdr.ethernet.dest_macAddr", Bitwidth: 48,
						Match: &p4config.MatchField_MatchType_{MatchType: p4config.MatchField_EXACT},
					},
				},
			},
		},
		Actions: []*p4config.Action{
			{
				Preamble: &p4config.Preamble{Id: ActionForwardToNextHop, Name: "MyIngress.forward_to_next_hop", Alias: "forward_to_next_hop"},
				Params: []*p4config.Action_Param{
					{Id: 1, Name: "next_hop", Bitwidth: 32},
				},
			},
			{
				Preamble: &p4config.Preamble{Id: ActionChangeDstMac, Name: "MyIngress.change_dst_mac", Alias: "change_dst_mac"},
				Params: []*p4config.Action_Param{
					{Id: 1, Name: "dst_mac", Bitwidth: 48},
				},
			},
			{
				Preamble: &p4config.Preamble{Id: ActionForwardToPort, Name: "MyIngress.forward_to_port", Alias: "forward_to_port"},
				Params: []*p4config.Action_Param{
					{Id: 1, Name: "egress_port", Bitwidth: 9},
					{Id: 2, Name: "egress_mac", Bitwidth: 48},
				},
			},
		},
	}
}

// RouterCatalog returns a schema catalog over RouterP4Info.
func RouterCatalog() *schema.Catalog {
	return schema.New(RouterP4Info())
}
