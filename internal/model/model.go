package model

import (
	"bytes"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Frame holds the link-layer fields of a single captured frame.
type Frame struct {
	Dst       net.HardwareAddr
	EtherType uint16
	Timestamp time.Time
	// Data is the raw frame, kept only when the trace must be written back to disk.
	Data []byte
}

// Direction tells whether a frame was addressed to everyone or to a single host.
type Direction uint8

const (
	Unicast Direction = iota
	Broadcast
)

var BroadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// DirectionOf returns Broadcast iff dst is exactly the all-ones address.
func DirectionOf(dst net.HardwareAddr) Direction {
	if bytes.Equal(dst, BroadcastAddr) {
		return Broadcast
	}
	return Unicast
}

func (d Direction) String() string {
	if d == Broadcast {
		return "BROADCAST"
	}
	return "UNICAST"
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "BROADCAST":
		return Broadcast, nil
	case "UNICAST":
		return Unicast, nil
	}
	return Unicast, fmt.Errorf("unknown direction %q", s)
}

// Symbol is the unit of the traffic alphabet. It is comparable and used as a map key.
type Symbol struct {
	Direction Direction
	Protocol  string
}

func (s Symbol) String() string {
	return "(" + s.Direction.String() + ", " + s.Protocol + ")"
}

// ParseSymbol parses the "(DIRECTION, label)" form produced by Symbol.String.
func ParseSymbol(s string) (Symbol, error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Symbol{}, fmt.Errorf("malformed symbol %q", s)
	}
	dir, proto, ok := strings.Cut(s[1:len(s)-1], ", ")
	if !ok || proto == "" {
		return Symbol{}, fmt.Errorf("malformed symbol %q", s)
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{Direction: d, Protocol: proto}, nil
}

// PacketRecord is the classified form of a frame.
type PacketRecord struct {
	Symbol       Symbol
	RelativeTime time.Duration
}

// Trace is the ordered sequence of classified frames. Index is arrival order.
type Trace []PacketRecord

// Symbols returns the symbol stream of the trace.
func (t Trace) Symbols() []Symbol {
	out := make([]Symbol, len(t))
	for i, r := range t {
		out[i] = r.Symbol
	}
	return out
}

// ExperimentIdentity names one experiment and keys every artifact derived from it.
type ExperimentIdentity struct {
	User string
	Name string
}

// Key is the filesystem-safe form "{user}_{name}".
func (id ExperimentIdentity) Key() string {
	return id.User + "_" + id.Name
}

func (id ExperimentIdentity) String() string {
	return id.Key()
}

// ParseIdentity derives an identity from a raw trace file name such as
// "alice_busy.pcap". The user is everything before the first underscore.
func ParseIdentity(fileName string) (ExperimentIdentity, error) {
	base := filepath.Base(fileName)
	id, err := ParseKey(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return ExperimentIdentity{}, fmt.Errorf("cannot derive user and experiment from %q", fileName)
	}
	return id, nil
}

// NewIdentity validates user and name as given on a command line. The user
// must not contain an underscore, and neither part may contain a path
// separator, so that the key parses back to the same identity.
func NewIdentity(user, name string) (ExperimentIdentity, error) {
	id := ExperimentIdentity{User: user, Name: name}
	parsed, err := ParseKey(id.Key())
	if err != nil {
		return ExperimentIdentity{}, err
	}
	if parsed != id {
		return ExperimentIdentity{}, fmt.Errorf("user %q must not contain '_'", user)
	}
	return id, nil
}

// ParseKey inverts Key.
func ParseKey(key string) (ExperimentIdentity, error) {
	user, name, ok := strings.Cut(key, "_")
	if !ok || user == "" || name == "" || strings.ContainsAny(key, `/\`) {
		return ExperimentIdentity{}, fmt.Errorf("invalid experiment key %q", key)
	}
	return ExperimentIdentity{User: user, Name: name}, nil
}

// ArtifactKind names one of the derived tables kept in the cache.
type ArtifactKind string

const (
	KindTrace   ArtifactKind = "trace"
	KindSymbols ArtifactKind = "symbols"
	KindRunning ArtifactKind = "running"
)
