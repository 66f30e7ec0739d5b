// Package models holds the gorm-mapped row shapes persisted by
// internal/store, mirroring the domain packages' fields 1:1. Plain
// string-slice fields (tags, scope, the platform set) map to
// Postgres's native text[] column type via lib/pq's pq.StringArray,
// the same driver the teacher already reaches for in
// team_member_repository.go/user_repository.go for array columns;
// compound shapes that aren't flat string slices (per-platform
// caption targets, cadence) stay JSON text columns the way the
// teacher hand-rolls JSON for metadata/settings (social_repository.go's
// metadataJSON, team_repository.go's settingsJSON).
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Video mirrors internal/domain/video.Video.
type Video struct {
	ID             uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	OwnerUserID    uuid.UUID `gorm:"column:owner_user_id;type:uuid;index:idx_videos_owner"`
	ObjectKey      string    `gorm:"column:object_key"`
	Container      string    `gorm:"column:container"`
	Codec          string    `gorm:"column:codec"`
	DurationMS     int64     `gorm:"column:duration_ms"`
	Width          int       `gorm:"column:width"`
	Height         int       `gorm:"column:height"`
	SizeBytes      int64     `gorm:"column:size_bytes"`
	Status         string    `gorm:"column:status"`
	DefaultCaption string        `gorm:"column:default_caption"`
	DefaultTags    pq.StringArray `gorm:"column:default_tags;type:text[]"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Video) TableName() string { return "videos" }

// PlatformConnection mirrors internal/domain/connection.PlatformConnection.
type PlatformConnection struct {
	ID                 uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	OwnerUserID        uuid.UUID `gorm:"column:owner_user_id;type:uuid;index:idx_connections_owner_platform"`
	Platform           string    `gorm:"column:platform;index:idx_connections_owner_platform"`
	PlatformAccountID  string    `gorm:"column:platform_account_id"`
	DisplayName        string         `gorm:"column:display_name"`
	Scope              pq.StringArray `gorm:"column:scope;type:text[]"`
	SealedAccessToken  []byte    `gorm:"column:sealed_access_token"`
	SealedRefreshToken []byte    `gorm:"column:sealed_refresh_token"`
	AccessTokenExpiry  time.Time `gorm:"column:access_token_expiry"`
	Status             string    `gorm:"column:status;index:idx_connections_owner_platform"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (PlatformConnection) TableName() string { return "platform_connections" }

// MultiPost mirrors internal/domain/post.MultiPost.
type MultiPost struct {
	ID            uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	OwnerUserID   uuid.UUID `gorm:"column:owner_user_id;type:uuid;index:idx_multiposts_owner"`
	VideoID       uuid.UUID      `gorm:"column:video_id;type:uuid;index:idx_multiposts_video"`
	Platforms     pq.StringArray `gorm:"column:platforms;type:text[]"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (MultiPost) TableName() string { return "multi_posts" }

// Post mirrors internal/domain/post.Post. The composite index on
// (owner via multi_posts join, video_id, platform, status) the
// governor's cooldown query needs can't be expressed as a gorm tag
// since owner_user_id and video_id live on multi_posts, not posts —
// it is created directly in migrate.go.
type Post struct {
	ID               uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	MultiPostID      uuid.UUID `gorm:"column:multi_post_id;type:uuid;index:idx_posts_multipost"`
	Platform         string    `gorm:"column:platform;index:idx_posts_status_platform"`
	Caption          string         `gorm:"column:caption"`
	Tags             pq.StringArray `gorm:"column:tags;type:text[]"`
	Status           string    `gorm:"column:status;index:idx_posts_status_platform"`
	Attempt          int       `gorm:"column:attempt"`
	LastErrorKind    string    `gorm:"column:last_error_kind"`
	LastErrorMessage string    `gorm:"column:last_error_message"`
	PlatformPostID   string    `gorm:"column:platform_post_id"`
	PlatformPostURL  string    `gorm:"column:platform_post_url"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;index:idx_posts_updated_at"`
}

func (Post) TableName() string { return "posts" }

// PostOutcome mirrors internal/domain/post.Outcome.
type PostOutcome struct {
	ID              uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	PostID          uuid.UUID `gorm:"column:post_id;type:uuid;index:idx_outcomes_post"`
	Attempt         int       `gorm:"column:attempt"`
	StartedAt       time.Time `gorm:"column:started_at"`
	EndedAt         time.Time `gorm:"column:ended_at"`
	Kind            string    `gorm:"column:kind"`
	ErrorKind       string    `gorm:"column:error_kind"`
	ResponseExcerpt string    `gorm:"column:response_excerpt"`
}

func (PostOutcome) TableName() string { return "post_outcomes" }

// Schedule mirrors internal/domain/schedule.Schedule.
type Schedule struct {
	ID               uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	OwnerUserID      uuid.UUID `gorm:"column:owner_user_id;type:uuid;index:idx_schedules_owner"`
	VideoID          uuid.UUID `gorm:"column:video_id;type:uuid"`
	TargetsRaw       string    `gorm:"column:targets"` // JSON []PlatformCaption
	ScheduledInstant time.Time `gorm:"column:scheduled_instant;index:idx_schedules_due"`
	Status           string    `gorm:"column:status;index:idx_schedules_due"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Schedule) TableName() string { return "schedules" }

// RecurringSchedule mirrors internal/domain/schedule.RecurringSchedule.
type RecurringSchedule struct {
	ID             uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	OwnerUserID    uuid.UUID `gorm:"column:owner_user_id;type:uuid;index:idx_recurring_owner"`
	VideoID        uuid.UUID `gorm:"column:video_id;type:uuid"`
	TargetsRaw     string    `gorm:"column:targets"`  // JSON []PlatformCaption
	CadenceRaw     string         `gorm:"column:cadence"` // JSON Cadence
	Variants       pq.StringArray `gorm:"column:variants;type:text[]"`
	Cursor         int       `gorm:"column:cursor"`
	State          string    `gorm:"column:state;index:idx_recurring_due"`
	NextOccurrence time.Time `gorm:"column:next_occurrence;index:idx_recurring_due"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (RecurringSchedule) TableName() string { return "recurring_schedules" }
