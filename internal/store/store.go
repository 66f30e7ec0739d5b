// Package store implements the domain repository interfaces against
// gorm.io/gorm + gorm.io/driver/postgres, grounded on the teacher's
// internal/infrastructure/persistence package shape (one repository
// struct per aggregate) but retargeted from the teacher's sqlc
// `internal/db.Queries` (absent from this snapshot) to gorm, per
// DESIGN.md. WithTx carries the active transaction through context so
// repositories fetched mid-transaction observe the same *gorm.DB the
// caller is committing or rolling back, the way the teacher's
// TeamRepository takes a raw *sql.DB and runs ad hoc queries against it.
package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/domain/schedule"
	"github.com/videocast/scheduler/internal/domain/video"
)

type txKey struct{}

// Store is the single constructed persistence value per process,
// implementing beat.Store and dispatcher.Store.
type Store struct {
	db *gorm.DB
}

// New wraps an already-opened *gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the ambient transaction's *gorm.DB if ctx was produced by
// WithTx, else the Store's base connection.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// WithTx runs fn inside one transaction, rolling back on error or
// panic — the outbox-style guarantee C6/C7 rely on to make a fired
// Schedule/RecurringSchedule, its materialized Posts, and its
// enqueued broker jobs atomic with each other.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
}

func (s *Store) Posts() post.Repository                          { return postRepository{s} }
func (s *Store) MultiPosts() post.MultiPostRepository             { return multiPostRepository{s} }
func (s *Store) Outcomes() post.OutcomeRepository                 { return outcomeRepository{s} }
func (s *Store) Connections() connection.Repository               { return connectionRepository{s} }
func (s *Store) Videos() video.Repository                         { return videoRepository{s} }
func (s *Store) Schedules() schedule.Repository                   { return scheduleRepository{s} }
func (s *Store) RecurringSchedules() schedule.RecurringRepository { return recurringScheduleRepository{s} }

func wrapNotFound(err error, notFound error) error {
	if err == gorm.ErrRecordNotFound {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
