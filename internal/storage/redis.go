package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BillStark001/meetscript/internal/models"
)

// RedisStore persists meeting records in Redis. Each record is a hash at
// meetscript:record:<session>:<timestamp>; per-session ordering comes from a
// sorted set at meetscript:records:<session> scored by timestamp.
type RedisStore struct {
	client *redis.Client
}

const (
	keySessionPrefix = "meetscript:session:"
	keyIndexPrefix   = "meetscript:records:"
	keyRecordPrefix  = "meetscript:record:"

	fieldLang = "lang"
	fieldText = "text"
	trPrefix  = "tr:"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) InitSession(ctx context.Context, session, name string, startedAt time.Time) error {
	key := keySessionPrefix + session
	err := s.client.HSet(ctx, key, map[string]interface{}{
		"name":       name,
		"started_at": startedAt.UTC().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("init session %s: %w", session, err)
	}
	return nil
}

func (s *RedisStore) AddRecord(ctx context.Context, rec models.MeetingRecord) error {
	indexKey := keyIndexPrefix + rec.Session
	member := strconv.FormatInt(rec.Timestamp, 10)

	added, err := s.client.ZAddNX(ctx, indexKey, redis.Z{
		Score:  float64(rec.Timestamp),
		Member: member,
	}).Result()
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	if added == 0 {
		return ErrDuplicateRecord
	}

	fields := map[string]interface{}{
		fieldLang: rec.Lang,
		fieldText: rec.Text,
	}
	for lang, text := range rec.Translations {
		fields[trPrefix+lang] = text
	}
	if err := s.client.HSet(ctx, s.recordKey(rec.Session, rec.Timestamp), fields).Err(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (s *RedisStore) FetchRecords(ctx context.Context, session string, start, end int64, langPrefix string) ([]models.MeetingRecord, error) {
	max := "+inf"
	if end > 0 {
		max = strconv.FormatInt(end, 10)
	}
	members, err := s.client.ZRangeByScore(ctx, keyIndexPrefix+session, &redis.ZRangeBy{
		Min: strconv.FormatInt(start, 10),
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	var out []models.MeetingRecord
	for _, member := range members {
		ts, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		rec, err := s.loadRecord(ctx, session, ts)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if langPrefix != "" && !strings.HasPrefix(rec.Lang, langPrefix) {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *RedisStore) ListUntranslated(ctx context.Context, session, lang string) ([]models.MeetingRecord, error) {
	members, err := s.client.ZRangeByScore(ctx, keyIndexPrefix+session, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	var out []models.MeetingRecord
	for _, member := range members {
		ts, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		rec, err := s.loadRecord(ctx, session, ts)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Lang == lang {
			continue
		}
		if _, filled := rec.Translations[lang]; filled {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *RedisStore) SetTranslation(ctx context.Context, session string, timestamp int64, lang, text string) error {
	key := s.recordKey(session, timestamp)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if exists == 0 {
		return ErrRecordNotFound
	}
	// HSetNX keeps the write idempotent: an already-filled slot stays as-is.
	if err := s.client.HSetNX(ctx, key, trPrefix+lang, text).Err(); err != nil {
		return fmt.Errorf("write translation: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) recordKey(session string, timestamp int64) string {
	return keyRecordPrefix + session + ":" + strconv.FormatInt(timestamp, 10)
}

func (s *RedisStore) loadRecord(ctx context.Context, session string, ts int64) (*models.MeetingRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(session, ts)).Result()
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec := models.MeetingRecord{
		Session:      session,
		Timestamp:    ts,
		Lang:         fields[fieldLang],
		Text:         fields[fieldText],
		Translations: make(map[string]string),
	}
	for k, v := range fields {
		if strings.HasPrefix(k, trPrefix) {
			rec.Translations[strings.TrimPrefix(k, trPrefix)] = v
		}
	}
	return &rec, nil
}
