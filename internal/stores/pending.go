package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingRecordVersionV1 = 1

	maxNameParts = 16
)

var (
	ErrPendingNotFound         = errors.New("pending record not found")
	ErrPendingCorrupt          = errors.New("pending record corrupt")
	ErrPendingContention       = errors.New("pending record contention")
	ErrPendingRedisUnavailable = errors.New("pending redis unavailable")
)

// Purpose tags what a pending record authorizes.
type Purpose uint8

const (
	PurposeRegistration Purpose = iota + 1
	PurposePasswordReset
)

// PendingRecord is a live verification challenge. Registration records carry
// the account payload; reset records carry only the target email.
type PendingRecord struct {
	Purpose      Purpose
	Email        string
	CodeHash     [32]byte
	ExpiresAt    int64 // unix milliseconds
	Name         []string
	PasswordHash string
}

type PendingStore struct {
	redis  redis.UniversalClient
	prefix string
	grace  time.Duration
}

// NewPendingStore returns a store keyed under prefix. Records outlive their
// expiry by grace so a late submission reads as expired rather than missing.
func NewPendingStore(redisClient redis.UniversalClient, prefix string, grace time.Duration) *PendingStore {
	if prefix == "" {
		prefix = "apv"
	}
	return &PendingStore{
		redis:  redisClient,
		prefix: prefix,
		grace:  grace,
	}
}

func (s *PendingStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *PendingStore) Save(ctx context.Context, id string, record *PendingRecord, ttl time.Duration) error {
	encoded, err := encodePendingRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(id), encoded, ttl+s.grace).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

func (s *PendingStore) Get(ctx context.Context, id string) (*PendingRecord, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}

	record, err := decodePendingRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingCorrupt, err)
	}
	return record, nil
}

// Consume loads the record, runs accept on it and deletes it only when accept
// returns nil. Errors from accept are returned unchanged and leave the record
// in place.
func (s *PendingStore) Consume(ctx context.Context, id string, accept func(*PendingRecord) error) (*PendingRecord, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var matched *PendingRecord
		var rejected error

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePendingRecord(data)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPendingCorrupt, err)
			}

			if rejected = accept(record); rejected != nil {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrPendingNotFound
			case errors.Is(err, ErrPendingCorrupt):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
			}
		}
		if rejected != nil {
			return nil, rejected
		}

		return matched, nil
	}

	return nil, ErrPendingContention
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *PendingStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

func encodePendingRecord(record *PendingRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(pendingRecordVersionV1)
	buf.WriteByte(byte(record.Purpose))

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	if err := writeString16(&buf, record.Email); err != nil {
		return nil, err
	}

	if len(record.Name) > maxNameParts {
		return nil, errors.New("pending record has too many name parts")
	}
	buf.WriteByte(byte(len(record.Name)))
	for _, part := range record.Name {
		if err := writeString16(&buf, part); err != nil {
			return nil, err
		}
	}

	if err := writeString16(&buf, record.PasswordHash); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodePendingRecord(data []byte) (*PendingRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingRecordVersionV1 {
		return nil, errors.New("invalid pending record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	record := &PendingRecord{Purpose: Purpose(purpose)}
	if record.Purpose != PurposeRegistration && record.Purpose != PurposePasswordReset {
		return nil, errors.New("invalid pending record purpose")
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	if record.Email, err = readString16(reader); err != nil {
		return nil, err
	}

	parts, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if parts > maxNameParts {
		return nil, errors.New("pending record has too many name parts")
	}
	for i := 0; i < int(parts); i++ {
		part, err := readString16(reader)
		if err != nil {
			return nil, err
		}
		record.Name = append(record.Name, part)
	}

	if record.PasswordHash, err = readString16(reader); err != nil {
		return nil, err
	}

	return record, nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("pending record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
