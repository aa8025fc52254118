package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrAccountNotFound   = errors.New("account not found")
	ErrCodeNotFound      = errors.New("verification code not found")
	ErrCodeMismatch      = errors.New("verification code mismatch")
	ErrAttemptsExceeded  = errors.New("verification attempts exceeded")
	ErrSelectionNotFound = errors.New("event selection not found")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// consumeCodeLua atomically performs GET→validate→DEL/SET on a code record.
// KEYS[1] = code record key
// ARGV[1] = provided code hash
// ARGV[2] = max attempts (int string)
// ARGV[3] = current unix timestamp (int string)
//
// Returns the record on success, or an error string: "not_found", "expired",
// "attempts_exceeded", "code_mismatch".
var consumeCodeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local rec = cjson.decode(data)
local maxAttempts = tonumber(ARGV[2])
local nowUnix = tonumber(ARGV[3])

if nowUnix > tonumber(rec.expiresAt) then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if rec.codeHash ~= ARGV[1] then
  rec.attempts = rec.attempts + 1
  if rec.attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttlMs)
  return {err='code_mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// AccountRecord is one registered account. Accounts persist without TTL;
// the devserver is a sandbox and FLUSHDB is the reset story.
type AccountRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Verified     bool   `json:"verified"`
	CreatedAt    int64  `json:"createdAt"`
}

type codeRecord struct {
	CodeHash  string `json:"codeHash"`
	Attempts  int    `json:"attempts"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SelectionRecord is the most recent event selection. The service contract
// carries no session credential, so the devserver keeps a single current
// selection rather than one per account.
type SelectionRecord struct {
	Occasion          string  `json:"occasion"`
	Budget            float64 `json:"budget"`
	PreferredTime     int64   `json:"preferredTime"`
	PreferredLocation string  `json:"preferredLocation"`
	Notes             string  `json:"notes,omitempty"`
	SubmittedAt       int64   `json:"submittedAt"`
}

// Store persists accounts, pending verification codes, and the current
// event selection in redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store on the given redis client. An empty prefix
// defaults to "conout".
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "conout"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) accountKey(email string) string {
	return s.prefix + ":acct:" + email
}

func (s *Store) codeKey(email string) string {
	return s.prefix + ":code:" + email
}

func (s *Store) selectionKey() string {
	return s.prefix + ":selection"
}

// CreateAccount registers a new account. It fails with ErrDuplicateEmail
// when the address is already taken.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string) error {
	record := AccountRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.accountKey(email), encoded, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrDuplicateEmail
	}
	return nil
}

// GetAccount loads an account by email.
func (s *Store) GetAccount(ctx context.Context, email string) (*AccountRecord, error) {
	data, err := s.redis.Get(ctx, s.accountKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var record AccountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &record, nil
}

// MarkVerified flips the account's verified flag.
func (s *Store) MarkVerified(ctx context.Context, email string) error {
	record, err := s.GetAccount(ctx, email)
	if err != nil {
		return err
	}

	record.Verified = true
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.accountKey(email), encoded, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SaveCode stores a pending verification code digest with the given TTL,
// replacing any earlier pending code for the address.
func (s *Store) SaveCode(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	record := codeRecord{
		CodeHash:  codeHash,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.codeKey(email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ConsumeCode validates a provided code digest against the pending record.
// A match deletes the record; a mismatch counts one attempt and deletes the
// record once maxAttempts is reached.
func (s *Store) ConsumeCode(ctx context.Context, email, codeHash string, maxAttempts int) error {
	_, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{s.codeKey(email)},
		codeHash,
		maxAttempts,
		time.Now().Unix(),
	).Result()
	if err == nil {
		return nil
	}

	switch err.Error() {
	case "not_found", "expired":
		return ErrCodeNotFound
	case "attempts_exceeded":
		return ErrAttemptsExceeded
	case "code_mismatch":
		return ErrCodeMismatch
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// SaveSelection stores the current event selection.
func (s *Store) SaveSelection(ctx context.Context, record *SelectionRecord) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.selectionKey(), encoded, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetSelection loads the current event selection.
func (s *Store) GetSelection(ctx context.Context) (*SelectionRecord, error) {
	data, err := s.redis.Get(ctx, s.selectionKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSelectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var record SelectionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &record, nil
}
