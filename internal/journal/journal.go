package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
	"github.com/wizzybrown/Drosera/pkg/id"
)

// Kind classifies a journal record.
type Kind string

// Record kinds emitted by the guard and operator.
const (
	KindWithdrawal      Kind = "withdrawal"
	KindSweep           Kind = "sweep"
	KindCredit          Kind = "credit"
	KindPauseChange     Kind = "pause_change"
	KindTriggerRotation Kind = "trigger_rotation"
	KindOwnershipChange Kind = "ownership_change"
	KindDecision        Kind = "decision"
)

// header is the JSON metadata stored ahead of every payload.
type header struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
	TsMs int64  `json:"tsMs"`
}

// Entry is a decoded journal record.
type Entry struct {
	Seq     uint64
	Kind    Kind
	ID      string
	TsMs    int64
	Payload []byte
}

// Journal is an append-only, checksummed action log stored in Pebble.
// Records are assigned contiguous sequence numbers and time-ordered IDs.
type Journal struct {
	db  *pebblestore.DB
	gen *id.Generator

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Journal, restoring the last sequence from metadata.
func Open(db *pebblestore.DB) (*Journal, error) {
	j := &Journal{db: db, gen: id.NewGenerator()}
	meta, err := db.Get(KeyMeta())
	if err == nil && len(meta) >= 8 {
		j.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return j, nil
}

// StageAppend stages one record into a caller-owned batch, so callers can
// commit a journal entry atomically with their own state changes. The
// returned sequence is only durable once the batch commits.
func (j *Journal) StageAppend(b *pebble.Batch, kind Kind, payload []byte) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastSeq++
	seq := j.lastSeq

	hdr, err := json.Marshal(header{Kind: kind, ID: j.gen.Next().String(), TsMs: id.NowMs()})
	if err != nil {
		return 0, err
	}
	if err := b.Set(KeyEntry(seq), EncodeRecord(hdr, payload), nil); err != nil {
		return 0, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyMeta(), meta[:], nil); err != nil {
		return 0, err
	}
	return seq, nil
}

// CommitStaged commits a caller batch carrying a record staged with
// StageAppend. On failure the staged sequence is released, so LastSeq
// never reports a sequence that was not written.
func (j *Journal) CommitStaged(ctx context.Context, b *pebble.Batch, seq uint64) error {
	if err := j.db.CommitBatch(ctx, b); err != nil {
		j.rollback(seq)
		return err
	}
	return nil
}

// rollback releases seq after a failed commit. Only the most recently
// assigned sequence can be released; an earlier failure leaves a gap
// rather than risk reusing a sequence staged by a later caller.
func (j *Journal) rollback(seq uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastSeq == seq {
		j.lastSeq = seq - 1
	}
}

// Append writes a single record in its own atomic batch.
func (j *Journal) Append(ctx context.Context, kind Kind, payload []byte) (uint64, error) {
	b := j.db.NewBatch()
	defer b.Close()
	seq, err := j.StageAppend(b, kind, payload)
	if err != nil {
		return 0, err
	}
	if err := j.CommitStaged(ctx, b, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// ScanOptions bound a Scan.
type ScanOptions struct {
	// Start is the first sequence to return (0 means from the beginning).
	Start uint64
	// Limit caps the number of entries (0 means no cap).
	Limit int
	// Kind filters to a single record kind when non-empty.
	Kind Kind
}

// Scan returns journal entries in sequence order. Corrupted records are
// skipped.
func (j *Journal) Scan(opts ScanOptions) ([]Entry, error) {
	low := KeyEntry(0)
	hi := KeyEntry(^uint64(0))
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	start := KeyEntry(opts.Start)
	if !iter.SeekGE(start) {
		return out, nil
	}
	for iter.Valid() && (opts.Limit == 0 || len(out) < opts.Limit) {
		dec, ok := DecodeRecord(iter.Value())
		if ok {
			var hdr header
			if err := json.Unmarshal(dec.Header, &hdr); err == nil {
				if opts.Kind == "" || hdr.Kind == opts.Kind {
					out = append(out, Entry{
						Seq:     seqFromEntryKey(iter.Key()),
						Kind:    hdr.Kind,
						ID:      hdr.ID,
						TsMs:    hdr.TsMs,
						Payload: dec.Payload,
					})
				}
			}
		}
		if !iter.Next() {
			break
		}
	}
	return out, nil
}

// LastSeq returns the last assigned sequence number.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq
}
