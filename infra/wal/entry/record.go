package entry

import (
	"fmt"
	"time"
)

type RecordType uint8

const (
	RecordSubmit RecordType = iota + 1
	RecordCancel
	RecordTrigger
)

func (t RecordType) String() string {
	switch t {
	case RecordSubmit:
		return "SUBMIT"
	case RecordCancel:
		return "CANCEL"
	case RecordTrigger:
		return "TRIGGER"
	default:
		return fmt.Sprintf("RecordType(%d)", uint8(t))
	}
}

// Record is one journal frame.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
