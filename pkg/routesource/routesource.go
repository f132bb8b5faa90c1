// SPDX-License-Identifier: Apache-2.0

// Package routesource synthesizes routing records from the local kernel
// FIB as an alternative to the routing specification file. Each IPv4 route
// with a gateway becomes one record, with the gateway MAC taken from the
// kernel neighbor table and the egress MAC from the link itself.
package routesource

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/netprog/p4route-ctrl/pkg/pipeline"
)

// FromKernel lists the kernel's IPv4 gateway routes as routing records.
// Routes whose gateway has no resolved neighbor entry are skipped with a
// warning; the kernel owns neighbor resolution, not this controller.
func FromKernel() ([]pipeline.RoutingRecord, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("listing kernel routes: %w", err)
	}
	neighbors, err := netlink.NeighList(0, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("listing kernel neighbors: %w", err)
	}

	macByIP := make(map[string]string)
	for _, n := range neighbors {
		if n.HardwareAddr == nil || n.State&netlink.NUD_FAILED != 0 {
			continue
		}
		macByIP[n.IP.String()] = n.HardwareAddr.String()
	}

	var records []pipeline.RoutingRecord
	for _, route := range routes {
		if route.Dst == nil || route.Gw == nil {
			continue
		}
		gw := route.Gw.String()
		nhMAC, ok := macByIP[gw]
		if !ok {
			log.Warnf("route %s: gateway %s has no resolved neighbor, skipping", route.Dst, gw)
			continue
		}
		link, err := netlink.LinkByIndex(route.LinkIndex)
		if err != nil {
			return nil, fmt.Errorf("link %d of route %s: %w", route.LinkIndex, route.Dst, err)
		}
		ones, _ := route.Dst.Mask.Size()
		records = append(records, pipeline.RoutingRecord{
			Prefix:     route.Dst.IP.String(),
			PrefixLen:  ones,
			NextHop:    gw,
			NextHopMAC: nhMAC,
			EgressMAC:  link.Attrs().HardwareAddr.String(),
			EgressPort: route.LinkIndex,
		})
	}
	log.Infof("derived %d routing records from the kernel FIB", len(records))
	return records, nil
}
