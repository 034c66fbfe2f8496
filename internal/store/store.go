package store

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"stocksim/pkg/exception"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/zeebo/blake3"
)

const (
	recordVersion = 1
	headerSize    = 1 + 8 + 32

	keyPrefix = "snap/"
	keyUpper  = "snap0"
)

// Options configures a Store.
type Options struct {
	Dir       string
	Retention int
	Clock     func() time.Time
}

// Entry describes a stored snapshot.
type Entry struct {
	Seq       uint64
	CreatedAt time.Time
	Size      int
	Checksum  [32]byte
}

// Store is a Pebble-backed snapshot store. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	db      *pebble.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	opt     Options
	lastSeq uint64
	closed  bool
}

// Open opens or creates the store in opt.Dir.
func Open(opt Options) (*Store, error) {
	if opt.Dir == "" {
		return nil, errors.New("store dir is empty")
	}
	if opt.Retention < 0 {
		return nil, errors.Errorf("invalid retention: %d", opt.Retention)
	}
	if opt.Clock == nil {
		opt.Clock = time.Now
	}

	db, err := pebble.Open(opt.Dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble, dir: %s", opt.Dir)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "new zstd encoder")
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		_ = db.Close()
		return nil, errors.Wrap(err, "new zstd decoder")
	}

	s := &Store{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		opt:     opt,
	}

	entries, err := s.list()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if len(entries) != 0 {
		s.lastSeq = entries[len(entries)-1].Seq
	}

	logs.Infof("snapshot store opened, dir: %s, snapshots: %d", opt.Dir, len(entries))
	return s, nil
}

// Close releases the database. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// Save appends data as the newest snapshot and applies the retention.
func (s *Store) Save(data []byte) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, exception.ErrStoreClosed
	}

	entry := Entry{
		Seq:       s.lastSeq + 1,
		CreatedAt: s.opt.Clock(),
		Size:      len(data),
		Checksum:  blake3.Sum256(data),
	}
	record := s.encode(entry, data)

	if err := s.db.Set(seqKey(entry.Seq), record, pebble.Sync); err != nil {
		return Entry{}, errors.Wrapf(err, "set snapshot, seq: %d", entry.Seq)
	}
	s.lastSeq = entry.Seq

	if s.opt.Retention > 0 {
		if _, err := s.prune(s.opt.Retention); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// Latest returns the newest snapshot or ErrStoreNotFound.
func (s *Store) Latest() (Entry, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, nil, exception.ErrStoreClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyUpper),
	})
	if err != nil {
		return Entry{}, nil, errors.Wrap(err, "new iter")
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return Entry{}, nil, errors.Wrap(err, "iter last")
		}
		return Entry{}, nil, exception.ErrStoreNotFound
	}
	return s.decode(iter.Key(), iter.Value())
}

// Get returns the snapshot stored under seq.
func (s *Store) Get(seq uint64) (Entry, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, nil, exception.ErrStoreClosed
	}

	key := seqKey(seq)
	value, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return Entry{}, nil, errors.Wrapf(exception.ErrStoreNotFound, "seq: %d", seq)
		}
		return Entry{}, nil, errors.Wrapf(err, "get snapshot, seq: %d", seq)
	}
	defer closer.Close()

	return s.decode(key, value)
}

// List returns every stored snapshot, oldest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, exception.ErrStoreClosed
	}
	return s.list()
}

// Prune deletes all but the newest keep snapshots and returns how many were
// deleted.
func (s *Store) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, exception.ErrStoreClosed
	}
	return s.prune(keep)
}

func (s *Store) prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	entries, err := s.list()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	stale := entries[:len(entries)-keep]
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, e := range stale {
		if err := batch.Delete(seqKey(e.Seq), pebble.NoSync); err != nil {
			return 0, errors.Wrapf(err, "delete snapshot, seq: %d", e.Seq)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "commit prune")
	}
	return len(stale), nil
}

// list scans the headers only. Payloads are not decompressed.
func (s *Store) list() ([]Entry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyUpper),
	})
	if err != nil {
		return nil, errors.Wrap(err, "new iter")
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		entry, err := decodeHeader(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iter")
	}
	return entries, nil
}

func (s *Store) encode(entry Entry, data []byte) []byte {
	record := make([]byte, headerSize, headerSize+len(data)/2)
	record[0] = recordVersion
	binary.BigEndian.PutUint64(record[1:9], uint64(entry.CreatedAt.UnixMilli()))
	copy(record[9:headerSize], entry.Checksum[:])
	return s.encoder.EncodeAll(data, record)
}

// decode copies value, which pebble only guarantees until the iterator moves.
func (s *Store) decode(key, value []byte) (Entry, []byte, error) {
	entry, err := decodeHeader(key, value)
	if err != nil {
		return Entry{}, nil, err
	}
	data, err := s.decoder.DecodeAll(value[headerSize:], nil)
	if err != nil {
		return Entry{}, nil, errors.Wrapf(exception.ErrStoreCorruptedRecord, "decompress, seq: %d, err: %+v", entry.Seq, err)
	}
	if blake3.Sum256(data) != entry.Checksum {
		return Entry{}, nil, errors.Wrapf(exception.ErrStoreChecksum, "seq: %d", entry.Seq)
	}
	entry.Size = len(data)
	return entry, data, nil
}

func decodeHeader(key, value []byte) (Entry, error) {
	seq, err := parseSeqKey(key)
	if err != nil {
		return Entry{}, err
	}
	if len(value) < headerSize || value[0] != recordVersion {
		return Entry{}, errors.Wrapf(exception.ErrStoreCorruptedRecord, "seq: %d, size: %d", seq, len(value))
	}
	entry := Entry{
		Seq:       seq,
		CreatedAt: time.UnixMilli(int64(binary.BigEndian.Uint64(value[1:9]))),
		Size:      len(value) - headerSize,
	}
	copy(entry.Checksum[:], value[9:headerSize])
	return entry, nil
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseSeqKey(key []byte) (uint64, error) {
	raw, ok := strings.CutPrefix(string(key), keyPrefix)
	if !ok {
		return 0, errors.Wrapf(exception.ErrStoreCorruptedRecord, "key: %q", key)
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(exception.ErrStoreCorruptedRecord, "key: %q", key)
	}
	return seq, nil
}
