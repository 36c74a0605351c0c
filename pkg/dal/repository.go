package dal

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// batchSize 批量写入每批条数
const batchSize = 100

// BaseRepository 泛型仓储，所有方法都走构造时传入的 db（可以是事务）
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository 使用指定DB创建基础仓储
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// CreateBatch 批量创建，空切片直接返回
func (r *BaseRepository[T]) CreateBatch(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entities, batchSize).Error
}

// DeleteWhere 按条件删除，条件为空时拒绝执行
func (r *BaseRepository[T]) DeleteWhere(ctx context.Context, conditions map[string]any) error {
	if len(conditions) == 0 {
		return gorm.ErrMissingWhereClause
	}
	var entity T
	return r.db.WithContext(ctx).Where(conditions).Delete(&entity).Error
}

// FindOne 查找单个实体，不存在时返回 nil, nil
func (r *BaseRepository[T]) FindOne(ctx context.Context, conditions map[string]any, opts ...QueryOption) (*T, error) {
	var entity T
	db := apply(r.db.WithContext(ctx), opts)
	if err := db.Where(conditions).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// FindAll 查找所有符合条件的实体
func (r *BaseRepository[T]) FindAll(ctx context.Context, conditions map[string]any, opts ...QueryOption) ([]T, error) {
	var entities []T
	db := apply(r.db.WithContext(ctx), opts)
	if len(conditions) > 0 {
		db = db.Where(conditions)
	}
	if err := db.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Count 统计数量
func (r *BaseRepository[T]) Count(ctx context.Context, opts ...QueryOption) (int64, error) {
	var (
		count  int64
		entity T
	)
	db := apply(r.db.WithContext(ctx).Model(&entity), opts)
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func apply(db *gorm.DB, opts []QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}
