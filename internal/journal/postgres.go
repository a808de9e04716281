package journal

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type journalRow struct {
	ID         uint   `gorm:"primaryKey"`
	SessionID  string `gorm:"index:idx_sync_journal_session,priority:1;not null"`
	Slug       string `gorm:"not null"`
	Seq        int64  `gorm:"index:idx_sync_journal_session,priority:2;not null"`
	Event      string `gorm:"not null"`
	Payload    []byte
	RecordedAt time.Time `gorm:"not null"`
}

func (journalRow) TableName() string { return "sync_journal" }

// Postgres stores the journal through gorm.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&journalRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Append(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	row := journalRow{
		SessionID:  e.SessionID,
		Slug:       e.Slug,
		Seq:        e.Seq,
		Event:      string(e.Event),
		Payload:    e.Payload,
		RecordedAt: e.RecordedAt,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (p *Postgres) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	var rows []journalRow
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{
			SessionID:  r.SessionID,
			Slug:       r.Slug,
			Seq:        r.Seq,
			Event:      Event(r.Event),
			Payload:    r.Payload,
			RecordedAt: r.RecordedAt,
		})
	}
	return out, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
