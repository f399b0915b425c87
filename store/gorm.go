package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type entityRow struct {
	EntityType string `gorm:"column:entity_type;primaryKey;size:64"`
	EntityID   string `gorm:"column:entity_id;primaryKey;size:256"`
	Seq        uint64 `gorm:"column:seq;not null;index"`
	IndexJSON  []byte `gorm:"column:index_json"`
	Data       []byte `gorm:"column:data"`
}

func (entityRow) TableName() string { return "entities" }

type indexRow struct {
	EntityType string `gorm:"column:entity_type;primaryKey;size:64"`
	Field      string `gorm:"column:field;primaryKey;size:64"`
	Value      string `gorm:"column:value;primaryKey;size:256"`
	EntityID   string `gorm:"column:entity_id;primaryKey;size:256"`
	Seq        uint64 `gorm:"column:seq;not null"`
}

func (indexRow) TableName() string { return "entity_indexes" }

// Gorm stores records in two SQL tables, commits run in one transaction.
type Gorm struct {
	db *gorm.DB

	lock sync.Mutex
	seq  uint64
}

// NewGorm opens dialector (postgres, mysql or sqlite) and migrates the schema.
func NewGorm(dialector gorm.Dialector) (*Gorm, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return NewGormFromDB(db)
}

func NewGormFromDB(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&entityRow{}, &indexRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	s := &Gorm{db: db}
	if err := db.Model(&entityRow{}).Select("COALESCE(MAX(seq), 0)").Scan(&s.seq).Error; err != nil {
		return nil, fmt.Errorf("reading sequence: %w", err)
	}
	return s, nil
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Gorm) Get(ctx context.Context, typ, id string) (*Record, error) {
	row, err := s.load(s.db.WithContext(ctx), typ, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row.record()
}

func (s *Gorm) Set(ctx context.Context, rec *Record) error {
	return s.Apply(ctx, []Mutation{{Record: rec}})
}

func (s *Gorm) Delete(ctx context.Context, typ, id string) error {
	return s.Apply(ctx, []Mutation{{Delete: true, Record: &Record{Type: typ, ID: id}}})
}

func (s *Gorm) GetWhere(ctx context.Context, typ, field, value string) ([]*Record, error) {
	var rows []entityRow
	err := s.db.WithContext(ctx).
		Select("entities.*").
		Joins("JOIN entity_indexes ON entity_indexes.entity_type = entities.entity_type AND entity_indexes.entity_id = entities.entity_id").
		Where("entity_indexes.entity_type = ? AND entity_indexes.field = ? AND entity_indexes.value = ?", typ, field, value).
		Order("entities.seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying %s where %s=%s: %w", typ, field, value, err)
	}

	out := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Gorm) Apply(ctx context.Context, mutations []Mutation) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	seq := s.seq
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, mut := range mutations {
			var err error
			if mut.Delete {
				err = s.delete(tx, mut.Record.Type, mut.Record.ID)
			} else {
				err = s.upsert(tx, mut.Record, &seq)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.seq = seq
	return nil
}

func (s *Gorm) upsert(tx *gorm.DB, rec *Record, seq *uint64) error {
	prev, err := s.load(tx, rec.Type, rec.ID)
	if err != nil {
		return err
	}

	indexJSON, err := sonic.Marshal(rec.Index)
	if err != nil {
		return fmt.Errorf("marshalling %s %s index: %w", rec.Type, rec.ID, err)
	}

	if prev == nil {
		*seq++
		row := &entityRow{EntityType: rec.Type, EntityID: rec.ID, Seq: *seq, IndexJSON: indexJSON, Data: rec.Data}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("creating %s %s: %w", rec.Type, rec.ID, err)
		}
		return s.addIndexes(tx, rec, rec.Index, *seq)
	}

	prevRec, err := prev.record()
	if err != nil {
		return err
	}

	err = tx.Model(&entityRow{}).
		Where("entity_type = ? AND entity_id = ?", rec.Type, rec.ID).
		Updates(map[string]interface{}{"data": rec.Data, "index_json": indexJSON}).Error
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", rec.Type, rec.ID, err)
	}

	added := map[string]string{}
	for field, value := range rec.Index {
		if prevRec.Index[field] != value {
			added[field] = value
		}
	}
	for field, value := range prevRec.Index {
		if rec.Index[field] == value {
			continue
		}
		err := tx.Where("entity_type = ? AND field = ? AND value = ? AND entity_id = ?", rec.Type, field, value, rec.ID).
			Delete(&indexRow{}).Error
		if err != nil {
			return fmt.Errorf("dropping %s %s index %s: %w", rec.Type, rec.ID, field, err)
		}
	}
	return s.addIndexes(tx, rec, added, prev.Seq)
}

func (s *Gorm) addIndexes(tx *gorm.DB, rec *Record, index map[string]string, seq uint64) error {
	for field, value := range index {
		row := &indexRow{EntityType: rec.Type, Field: field, Value: value, EntityID: rec.ID, Seq: seq}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("indexing %s %s on %s: %w", rec.Type, rec.ID, field, err)
		}
	}
	return nil
}

func (s *Gorm) delete(tx *gorm.DB, typ, id string) error {
	if err := tx.Where("entity_type = ? AND entity_id = ?", typ, id).Delete(&indexRow{}).Error; err != nil {
		return fmt.Errorf("deleting %s %s indexes: %w", typ, id, err)
	}
	if err := tx.Where("entity_type = ? AND entity_id = ?", typ, id).Delete(&entityRow{}).Error; err != nil {
		return fmt.Errorf("deleting %s %s: %w", typ, id, err)
	}
	return nil
}

func (s *Gorm) load(db *gorm.DB, typ, id string) (*entityRow, error) {
	row := &entityRow{}
	err := db.Where("entity_type = ? AND entity_id = ?", typ, id).Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", typ, id, err)
	}
	return row, nil
}

func (r *entityRow) record() (*Record, error) {
	rec := &Record{Type: r.EntityType, ID: r.EntityID, Data: r.Data}
	if len(r.IndexJSON) > 0 {
		if err := sonic.Unmarshal(r.IndexJSON, &rec.Index); err != nil {
			return nil, fmt.Errorf("unmarshalling %s %s index: %w", r.EntityType, r.EntityID, err)
		}
	}
	return rec, nil
}
