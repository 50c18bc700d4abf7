package block

import (
	"bytes"
	"encoding/binary"

	"github.com/k0kubun/cast/template"
	"github.com/k0kubun/cast/tokenize"
)

// EncodeUnified serializes reg and idStream into the Unified block layout of
// spec §4.4:
//
//	[u8 flag][u32 len_reg][u32 len_ids_or_rowcount][registry][ids][vars]
//
// reg and idStream must already be in their final (frequency-remapped)
// order; call RemapUnified first. isLatin1 sets the flag's Latin-1 bit.
func EncodeUnified(reg *template.Registry, idStream []uint32, isLatin1 bool) []byte {
	idFlag := ChooseIDFlag(reg.NumTemplates())
	flag := MakeFlag(idFlag, isLatin1)

	registryBytes := []byte(tokenize.JoinRegistry(reg.Skeletons()))
	varBytes := EncodeVariables(reg)

	var idBytes []byte
	var lenIDsOrRowCount uint32
	if idFlag == FlagSingleTemplate {
		lenIDsOrRowCount = uint32(len(idStream))
	} else {
		idBytes = encodeIDs(idStream, idFlag)
		lenIDsOrRowCount = uint32(len(idBytes))
	}

	out := make([]byte, 0, 9+len(registryBytes)+len(idBytes)+len(varBytes))
	out = append(out, flag)
	out = appendUint32(out, uint32(len(registryBytes)))
	out = appendUint32(out, lenIDsOrRowCount)
	out = append(out, registryBytes...)
	out = append(out, idBytes...)
	out = append(out, varBytes...)
	return out
}

// EncodeSplit produces the three independent byte blobs of the Split block
// layout (spec §4.4): the joined registry, the raw (pre-compression) ID
// stream, and the byte-stuffed variable payload. Unlike EncodeUnified, no
// remapping is applied — Split keeps templates in insertion order, since
// spec §4.4 only requires frequency remapping "if Unified is chosen". The
// caller compresses each blob independently (see stream.flushTextBlock) and
// records flag + both non-variable sizes in the container entry, since
// "the Unified header is not written."
func EncodeSplit(reg *template.Registry, idStream []uint32, isLatin1 bool) (flag byte, registry, ids, vars []byte) {
	idFlag := ChooseIDFlag(reg.NumTemplates())
	flag = MakeFlag(idFlag, isLatin1)

	registry = []byte(tokenize.JoinRegistry(reg.Skeletons()))
	vars = EncodeVariables(reg)
	if idFlag != FlagSingleTemplate {
		ids = encodeIDs(idStream, idFlag)
	}
	return flag, registry, ids, vars
}

// EncodeVariables emits reg's columns in template-then-column order,
// byte-stuffing cell contents and separating cells with sepRow and columns
// with sepCol (spec §4.4).
func EncodeVariables(reg *template.Registry) []byte {
	var buf bytes.Buffer
	for t := 0; t < reg.NumTemplates(); t++ {
		id := uint32(t)
		numCols := reg.NumColumns(id)
		for c := 0; c < numCols; c++ {
			cells := reg.Column(id, c)
			for i, cell := range cells {
				if i > 0 {
					buf.WriteByte(sepRow)
				}
				writeEscaped(&buf, cell)
			}
			buf.WriteByte(sepCol)
		}
	}
	return buf.Bytes()
}

func encodeIDs(ids []uint32, flag IDFlag) []byte {
	size := flag.elemSize()
	if size == 0 {
		return nil
	}
	out := make([]byte, len(ids)*size)
	for i, id := range ids {
		switch flag {
		case FlagOneByte:
			out[i] = byte(id)
		case FlagTwoByte:
			binary.LittleEndian.PutUint16(out[i*2:], uint16(id))
		case FlagFourByte:
			binary.LittleEndian.PutUint32(out[i*4:], id)
		}
	}
	return out
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}
