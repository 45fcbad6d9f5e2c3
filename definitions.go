package lneto

// IPProto represents the IP protocol number carried in an IPv4 header's
// Protocol field.
type IPProto uint8

// IP protocol numbers in common use by this module. The full IANA registry
// is much larger; only the values a static IPv4 router needs to recognize
// are kept here.
const (
	IPProtoICMP IPProto = 1  // Internet Control Message [RFC792]
	IPProtoTCP  IPProto = 6  // Transmission Control [RFC793]
	IPProtoUDP  IPProto = 17 // User Datagram [RFC768]
)

func (p IPProto) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoTCP:
		return "TCP"
	case IPProtoUDP:
		return "UDP"
	default:
		return "unknown"
	}
}
