package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/model"
)

// SnapshotRecord 保存的配置快照版本
type SnapshotRecord struct {
	ID        uuid.UUID       `json:"id"`
	Version   int             `json:"version"`
	Label     string          `json:"label,omitempty"`
	Snapshot  *model.Snapshot `json:"snapshot,omitempty"` // List 不返回内容
	CreatedAt time.Time       `json:"createdAt"`
}

// SnapshotStore 快照存储接口
type SnapshotStore interface {
	// Save 保存新版本，版本号递增
	Save(ctx context.Context, snap *model.Snapshot, label string) (*SnapshotRecord, error)
	// Latest 返回最新版本，尚无记录时返回 ErrNoSnapshot
	Latest(ctx context.Context) (*SnapshotRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*SnapshotRecord, error)
	// List 按版本倒序列出，返回总数
	List(ctx context.Context, filter ListFilter) ([]*SnapshotRecord, int, error)
}

// SnapshotRepository PostgreSQL 快照仓储，内容存为 JSONB
type SnapshotRepository struct {
	db DB
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save 保存快照
func (r *SnapshotRepository) Save(ctx context.Context, snap *model.Snapshot, label string) (*SnapshotRecord, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "序列化快照失败")
	}

	record := &SnapshotRecord{
		ID:        uuid.New(),
		Label:     label,
		Snapshot:  snap.Clone(),
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO snapshots (id, version, label, data, created_at)
		VALUES ($1, COALESCE((SELECT MAX(version) FROM snapshots), 0) + 1, $2, $3, $4)
		RETURNING version
	`
	err = r.db.QueryRowContext(ctx, query, record.ID, record.Label, data, record.CreatedAt).Scan(&record.Version)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存快照失败")
	}
	return record, nil
}

// Latest 返回最新快照
func (r *SnapshotRepository) Latest(ctx context.Context) (*SnapshotRecord, error) {
	query := `
		SELECT id, version, label, data, created_at
		FROM snapshots
		ORDER BY version DESC
		LIMIT 1
	`
	record, err := scanSnapshot(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNoSnapshot
	}
	return record, err
}

// GetByID 根据ID获取快照
func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*SnapshotRecord, error) {
	query := `
		SELECT id, version, label, data, created_at
		FROM snapshots
		WHERE id = $1
	`
	record, err := scanSnapshot(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("snapshot", id.String())
	}
	return record, err
}

// List 列出快照版本
func (r *SnapshotRepository) List(ctx context.Context, filter ListFilter) ([]*SnapshotRecord, int, error) {
	filter = filter.normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计快照失败")
	}

	query := `
		SELECT id, version, label, created_at
		FROM snapshots
		ORDER BY version DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询快照失败")
	}
	defer rows.Close()

	records := make([]*SnapshotRecord, 0, filter.Limit)
	for rows.Next() {
		record := &SnapshotRecord{}
		if err := rows.Scan(&record.ID, &record.Version, &record.Label, &record.CreatedAt); err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取快照失败")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取快照失败")
	}
	return records, total, nil
}

// scanSnapshot 扫描单行快照，sql.ErrNoRows 原样返回
func scanSnapshot(row Scanner) (*SnapshotRecord, error) {
	record := &SnapshotRecord{}
	var data []byte
	if err := row.Scan(&record.ID, &record.Version, &record.Label, &data, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取快照失败")
	}

	record.Snapshot = &model.Snapshot{}
	if err := json.Unmarshal(data, record.Snapshot); err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("快照 %s: %w", record.ID, err), apperrors.CodeDatabaseError, "快照内容损坏")
	}
	return record, nil
}

// MemorySnapshotStore 内存快照存储，用于未启用数据库的运行和测试
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	records []*SnapshotRecord // 按版本升序
}

// NewMemorySnapshotStore 创建内存快照存储
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Save 保存快照
func (s *MemorySnapshotStore) Save(_ context.Context, snap *model.Snapshot, label string) (*SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &SnapshotRecord{
		ID:        uuid.New(),
		Version:   len(s.records) + 1,
		Label:     label,
		Snapshot:  snap.Clone(),
		CreatedAt: time.Now(),
	}
	s.records = append(s.records, record)
	return copyRecord(record, true), nil
}

// Latest 返回最新快照
func (s *MemorySnapshotStore) Latest(_ context.Context) (*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, apperrors.ErrNoSnapshot
	}
	return copyRecord(s.records[len(s.records)-1], true), nil
}

// GetByID 根据ID获取快照
func (s *MemorySnapshotStore) GetByID(_ context.Context, id uuid.UUID) (*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return copyRecord(r, true), nil
		}
	}
	return nil, apperrors.NotFound("snapshot", id.String())
}

// List 列出快照版本
func (s *MemorySnapshotStore) List(_ context.Context, filter ListFilter) ([]*SnapshotRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = filter.normalize()
	total := len(s.records)
	records := make([]*SnapshotRecord, 0, filter.Limit)
	for i := total - 1 - filter.Offset; i >= 0 && len(records) < filter.Limit; i-- {
		records = append(records, copyRecord(s.records[i], false))
	}
	return records, total, nil
}

// copyRecord 返回副本，调用方修改不影响存储
func copyRecord(r *SnapshotRecord, withData bool) *SnapshotRecord {
	out := *r
	out.Snapshot = nil
	if withData {
		out.Snapshot = r.Snapshot.Clone()
	}
	return &out
}
