package protocol

import "fmt"

// minEtherType is the smallest value interpreted as an ethertype. Smaller
// values are IEEE 802.3 length fields, which gopacket reports as LLC.
const minEtherType = 0x0600

// etherTypeLabels is a subset of the IEEE ethertype registry covering what
// shows up on ordinary LANs.
var etherTypeLabels = map[uint16]string{
	0x0800: "IPv4",
	0x0806: "ARP",
	0x0842: "WoL",
	0x22f0: "AVTP",
	0x22f3: "TRILL",
	0x6002: "DEC MOP RC",
	0x6003: "DECnet",
	0x6004: "DEC LAT",
	0x8035: "RARP",
	0x809b: "AppleTalk",
	0x80f3: "AARP",
	0x8100: "802.1Q",
	0x8102: "SLPP",
	0x8137: "IPX",
	0x8204: "QNX Qnet",
	0x86dd: "IPv6",
	0x8808: "Ethernet flow control",
	0x8809: "Slow Protocols",
	0x8819: "CobraNet",
	0x8847: "MPLS",
	0x8848: "MPLS multicast",
	0x8863: "PPPoE Discovery",
	0x8864: "PPPoE Session",
	0x887b: "HomePlug 1.0 MME",
	0x888e: "EAPOL",
	0x8892: "PROFINET",
	0x889a: "HyperSCSI",
	0x88a2: "ATA over Ethernet",
	0x88a4: "EtherCAT",
	0x88a8: "802.1ad",
	0x88ab: "Ethernet Powerlink",
	0x88b8: "GOOSE",
	0x88b9: "GSE",
	0x88ba: "SV",
	0x88cc: "LLDP",
	0x88cd: "SERCOS III",
	0x88e1: "HomePlug Green PHY",
	0x88e3: "MRP",
	0x88e5: "MACsec",
	0x88e7: "PBB",
	0x88f7: "PTP",
	0x88f8: "NC-SI",
	0x88fb: "PRP",
	0x8902: "CFM",
	0x8906: "FCoE",
	0x8914: "FCoE Initialization",
	0x8915: "RoCE",
	0x891d: "TTE",
	0x893a: "IEEE 1905.1",
	0x892f: "HSR",
	0x9000: "Loopback",
}

// ProtocolLabel maps an ethertype to its registry name. Unknown identifiers
// fall back to their hex form, e.g. "0x9999".
func ProtocolLabel(etherType uint16) string {
	if etherType < minEtherType {
		return "LLC"
	}
	if label, ok := etherTypeLabels[etherType]; ok {
		return label
	}
	return fmt.Sprintf("0x%04x", etherType)
}
