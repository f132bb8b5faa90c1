// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives bulk installation of a routing specification:
// parse the spec, derive the route/ARP/L2 entries each record implies,
// encode and write them in order, and report per-entry outcomes.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RoutingRecord is one parsed line of the routing specification. Address
// fields are kept as written; syntax problems surface at encode time.
type RoutingRecord struct {
	Line       int
	Prefix     string
	PrefixLen  int
	NextHop    string
	NextHopMAC string
	EgressMAC  string
	EgressPort int
}

// ParseError rejects the whole specification; a malformed spec is not
// partially trusted.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("routing spec line %d: %s", e.Line, e.Reason)
}

// ParseRoutingSpec reads records of the form
//
//	prefix/len,next_hop_addr,next_hop_mac,egress_mac,egress_port
//
// one per line, empty lines skipped. Any malformed line aborts the parse.
func ParseRoutingSpec(r io.Reader) ([]RoutingRecord, error) {
	var records []RoutingRecord

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("want 5 comma-separated fields, got %d", len(fields))}
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		prefixParts := strings.Split(fields[0], "/")
		if len(prefixParts) != 2 || prefixParts[0] == "" {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("malformed destination prefix %q", fields[0])}
		}
		prefixLen, err := strconv.Atoi(prefixParts[1])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("non-numeric prefix length %q", prefixParts[1])}
		}

		for i, name := range []string{"next hop address", "next hop MAC", "egress MAC"} {
			if fields[i+1] == "" {
				return nil, &ParseError{Line: lineNo, Reason: "empty " + name}
			}
		}

		port, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("non-numeric egress port %q", fields[4])}
		}

		records = append(records, RoutingRecord{
			Line:       lineNo,
			Prefix:     prefixParts[0],
			PrefixLen:  prefixLen,
			NextHop:    fields[1],
			NextHopMAC: fields[2],
			EgressMAC:  fields[3],
			EgressPort: port,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
