package evm

// EventRecord is a single ledger event as delivered by the log feed:
// the emitting identity, the ordered topic words, and the opaque
// ABI-encoded payload. Records are immutable and never persisted here.
type EventRecord struct {
	Emitter Address `json:"emitter"`
	Topics  []Word  `json:"topics"`
	Payload Bytes   `json:"payload"`
}

// Topic0 returns the event signature word, or the zero word for a record
// with no topics.
func (r EventRecord) Topic0() Word {
	if len(r.Topics) == 0 {
		return Word{}
	}
	return r.Topics[0]
}

// PayloadWords splits the payload into full 32-byte slots. A trailing
// partial slot is dropped.
func (r EventRecord) PayloadWords() []Word {
	n := len(r.Payload) / 32
	if n == 0 {
		return nil
	}
	out := make([]Word, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], r.Payload[i*32:(i+1)*32])
	}
	return out
}

// Subscription declares one emitter+event pair the log feed must deliver.
// Topic is the precomputed signature word for Signature.
type Subscription struct {
	Target    Address `json:"target"`
	Signature string  `json:"signature"`
	Topic     Word    `json:"topic"`
}
