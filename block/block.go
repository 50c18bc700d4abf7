// Package block implements the CAST Block Serializer and Deserializer
// (C4/C5): turning one row-group's Template Registry plus its per-row
// template-ID stream into a single byte-stuffed payload, and back. It plays
// the role schema/ddl_ordering.go plays for the teacher — a pure,
// self-contained transform over in-memory state collected elsewhere, with
// no I/O of its own.
package block

import (
	"errors"
	"fmt"
	"sort"

	"github.com/k0kubun/cast/template"
)

// ErrCorrupted is the sentinel fatal error for malformed block bytes:
// truncated length fields, non-UTF-8 registries, or ID streams whose
// length isn't a multiple of their element size (spec §4.5, §7).
var ErrCorrupted = errors.New("block: corrupted")

// corrupted wraps ErrCorrupted with a precise sub-reason, per spec §4.5's
// "fatal Corrupted errors with a precise sub-reason".
func corrupted(reason string) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, reason)
}

// IDFlag is the low 7 bits of a block's flag byte, selecting how the
// per-row template-ID stream is encoded (spec §4.4).
type IDFlag uint8

const (
	// FlagTwoByte encodes each ID as two little-endian bytes (<=65535 templates).
	FlagTwoByte IDFlag = 0
	// FlagFourByte encodes each ID as four little-endian bytes (more than 65535 templates).
	FlagFourByte IDFlag = 1
	// FlagOneByte encodes each ID as a single byte (<256 templates).
	FlagOneByte IDFlag = 2
	// FlagSingleTemplate means exactly one template; the ID stream is omitted.
	FlagSingleTemplate IDFlag = 3
)

// latin1Bit is bit 0x80 of the flag byte, set iff the block is Latin-1.
const latin1Bit = 0x80

// ChooseIDFlag picks the narrowest encoding for numTemplates distinct
// template IDs, per spec §4.4.
func ChooseIDFlag(numTemplates int) IDFlag {
	switch {
	case numTemplates == 1:
		return FlagSingleTemplate
	case numTemplates < 256:
		return FlagOneByte
	case numTemplates <= 65535:
		return FlagTwoByte
	default:
		return FlagFourByte
	}
}

// elemSize returns the number of bytes used per row by the ID stream
// encoding, or 0 when the ID stream is omitted (FlagSingleTemplate).
func (f IDFlag) elemSize() int {
	switch f {
	case FlagOneByte:
		return 1
	case FlagTwoByte:
		return 2
	case FlagFourByte:
		return 4
	default:
		return 0
	}
}

// MakeFlag combines an IDFlag with the Latin-1 bit into the on-disk flag byte.
func MakeFlag(idFlag IDFlag, isLatin1 bool) byte {
	f := byte(idFlag)
	if isLatin1 {
		f |= latin1Bit
	}
	return f
}

// SplitFlag decomposes an on-disk flag byte.
func SplitFlag(flag byte) (idFlag IDFlag, isLatin1 bool) {
	return IDFlag(flag &^ latin1Bit), flag&latin1Bit != 0
}

// RemapUnified sorts reg's templates descending by frequency within
// idStream (ties broken by first-appearance index), the "template
// remapping" step spec §4.4 requires before Unified serialization. It
// returns a new Registry in the remapped order (the original reg is left
// untouched, per template.Registry.Remap's contract) and idStream rewritten
// to reference the new IDs.
func RemapUnified(reg *template.Registry, idStream []uint32) (*template.Registry, []uint32) {
	n := reg.NumTemplates()
	freq := make([]int, n)
	firstSeen := make([]int, n)
	for i := range firstSeen {
		firstSeen[i] = -1
	}
	for i, id := range idStream {
		freq[id]++
		if firstSeen[id] == -1 {
			firstSeen[id] = i
		}
	}

	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		oa, ob := order[a], order[b]
		if freq[oa] != freq[ob] {
			return freq[oa] > freq[ob]
		}
		return firstSeen[oa] < firstSeen[ob]
	})

	oldToNew := make([]uint32, n)
	for newID, oldID := range order {
		oldToNew[oldID] = uint32(newID)
	}

	remappedIDs := make([]uint32, len(idStream))
	for i, id := range idStream {
		remappedIDs[i] = oldToNew[id]
	}

	return reg.Remap(order), remappedIDs
}
