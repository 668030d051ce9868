package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/rubric"
)

// interviewRow is the interviews table.
type interviewRow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Transcript     string    `gorm:"type:text;not null"`
	Prompt         string    `gorm:"type:text;not null"`
	InterviewType  string    `gorm:"type:varchar(64);not null;index"`
	Scores         []int     `gorm:"type:jsonb;serializer:json;not null"`
	Justifications []string  `gorm:"type:jsonb;serializer:json;not null"`
	Feedback       string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (interviewRow) TableName() string { return "interviews" }

func rowFromDraft(id uuid.UUID, draft interview.Draft, now time.Time) interviewRow {
	return interviewRow{
		ID:             id,
		Transcript:     draft.Transcript,
		Prompt:         draft.Prompt,
		InterviewType:  draft.InterviewType,
		Scores:         append([]int(nil), draft.Scores...),
		Justifications: append([]string(nil), draft.Justifications...),
		Feedback:       draft.Feedback,
		CreatedAt:      now.UTC(),
	}
}

func (r interviewRow) record() interview.Record {
	return interview.Record{
		ID:             r.ID.String(),
		Transcript:     r.Transcript,
		Prompt:         r.Prompt,
		InterviewType:  r.InterviewType,
		Scores:         r.Scores,
		Justifications: r.Justifications,
		Feedback:       r.Feedback,
		CreatedAt:      r.CreatedAt,
	}
}

// Postgres stores interviews through gorm.
type Postgres struct {
	db      *gorm.DB
	rubrics rubric.Set
}

// OpenPostgres connects, migrates the interviews table, and returns the store.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger, rubrics rubric.Set) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, &interview.StoreError{Op: "connect", Err: err}
	}

	p := &Postgres{db: db, rubrics: builtinRubrics(rubrics)}
	if err := p.db.WithContext(ctx).AutoMigrate(&interviewRow{}); err != nil {
		_ = p.Close()
		return nil, &interview.StoreError{Op: "migrate", Err: err}
	}
	return p, nil
}

func (p *Postgres) Create(ctx context.Context, draft interview.Draft) (string, error) {
	if err := validate(p.rubrics, draft); err != nil {
		return "", err
	}

	row := rowFromDraft(uuid.New(), draft, time.Now())
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", &interview.StoreError{Op: "create", Err: err}
	}
	return row.ID.String(), nil
}

func (p *Postgres) Read(ctx context.Context, id string) (interview.Record, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		// Not a key this store could have issued.
		return interview.Record{}, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	}

	var row interviewRow
	err = p.db.WithContext(ctx).First(&row, "id = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return interview.Record{}, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	case err != nil:
		return interview.Record{}, &interview.StoreError{Op: "read", Err: err}
	}
	return row.record(), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return &interview.StoreError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &interview.StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open builds the store named by kind.
func Open(ctx context.Context, kind, dsn string, logger *slog.Logger, rubrics rubric.Set) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemory(rubrics), nil
	case KindPostgres:
		p, err := OpenPostgres(ctx, dsn, logger, rubrics)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
