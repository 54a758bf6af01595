package offline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/encryption"
)

// RecordVersion is the only record layout this package writes.
const RecordVersion = 1

// Record is the persisted form of one key.
type Record struct {
	Data      json.RawMessage      `json:"data"`
	Timestamp time.Time            `json:"timestamp"`
	Version   int                  `json:"version"`
	Enc       encryption.Algorithm `json:"enc,omitempty"`
}

// Decode unmarshals the record payload into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// StoreOption configures a Store backend.
type StoreOption func(*codec)

// WithCipher seals record payloads with c, binding each to its key.
func WithCipher(c encryption.Cipher) StoreOption {
	return func(cd *codec) { cd.cipher = c }
}

// WithStoreClock sets the clock used for record timestamps.
func WithStoreClock(c clock.Clock) StoreOption {
	return func(cd *codec) { cd.clock = c }
}

// codec turns values into record bytes and back, applying the optional cipher.
type codec struct {
	cipher encryption.Cipher
	clock  clock.Clock
}

func newCodec(opts []StoreOption) *codec {
	c := &codec{clock: clock.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *codec) encode(key string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	rec := Record{Data: raw, Timestamp: c.clock.Now().UTC(), Version: RecordVersion}

	if c.cipher != nil {
		sealed, err := encryption.SealString(c.cipher, raw, []byte(key))
		if err != nil {
			return nil, fmt.Errorf("seal %s: %w", key, err)
		}
		rec.Data, _ = json.Marshal(sealed)
		rec.Enc = c.cipher.Algorithm()
	}
	return json.Marshal(rec)
}

func (c *codec) decode(key string, b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if rec.Version != RecordVersion {
		return Record{}, fmt.Errorf("decode %s: unsupported record version %d", key, rec.Version)
	}
	if rec.Enc == "" {
		return rec, nil
	}

	if c.cipher == nil {
		return Record{}, fmt.Errorf("decode %s: record is sealed with %s but no cipher is configured", key, rec.Enc)
	}
	if rec.Enc != c.cipher.Algorithm() {
		return Record{}, fmt.Errorf("decode %s: record is sealed with %s, cipher is %s", key, rec.Enc, c.cipher.Algorithm())
	}
	var sealed string
	if err := json.Unmarshal(rec.Data, &sealed); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	plain, err := encryption.OpenString(c.cipher, sealed, []byte(key))
	if err != nil {
		return Record{}, fmt.Errorf("open %s: %w", key, err)
	}
	rec.Data = plain
	rec.Enc = ""
	return rec, nil
}
