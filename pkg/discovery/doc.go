// Package discovery advertises and browses videoroom web front ends on the
// local network with mDNS/DNS-SD.
//
// An instance is published as
//
//	<instance>._videoroom._tcp.local.  port=<http port>
//	TXT: v=1 variant=<call|room> path=/ tls=<0|1>
//
// so other hosts can list the rooms reachable on the LAN and build their
// URLs.
package discovery
