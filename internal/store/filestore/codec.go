package filestore

import (
	"encoding/binary"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

const (
	formatVersion = 1
	// headerSize is the size of the file header: the format version (uint32, big-endian).
	headerSize = 4
	// recordSize is the size of one record: id (16), name as UTF-16 units (32), lastSeen millis (int64).
	recordSize = 16 + 2*nameUnits + 8
	nameUnits  = 16

	nameOffset     = 16
	lastSeenOffset = nameOffset + 2*nameUnits
)

type header []byte

func newHeader() header {
	h := make(header, headerSize)
	binary.BigEndian.PutUint32(h, formatVersion)
	return h
}

func (h header) Version() uint32 {
	return binary.BigEndian.Uint32(h[0:headerSize])
}

type record []byte

func newRecord() record {
	return make(record, recordSize)
}

func (r record) ID() uuid.UUID {
	var id uuid.UUID
	copy(id[:], r[0:nameOffset])
	return id
}

func (r record) SetID(id uuid.UUID) {
	copy(r[0:nameOffset], id[:])
}

// Name decodes up to the first zero unit or the end of the field.
func (r record) Name() string {
	units := make([]uint16, 0, nameUnits)
	for i := range nameUnits {
		u := binary.BigEndian.Uint16(r[nameOffset+2*i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// SetName writes name zero padded, truncated to nameUnits code units.
func (r record) SetName(name string) {
	units := utf16.Encode([]rune(name))
	if len(units) > nameUnits {
		units = units[:nameUnits]
	}
	field := r[nameOffset:lastSeenOffset]
	clear(field)
	for i, u := range units {
		binary.BigEndian.PutUint16(field[2*i:], u)
	}
}

func (r record) LastSeen() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(r[lastSeenOffset:recordSize]))).UTC()
}

func (r record) SetLastSeen(t time.Time) {
	binary.BigEndian.PutUint64(r[lastSeenOffset:recordSize], uint64(t.UnixMilli()))
}
