package service

import (
	"context"
	"time"

	"github.com/demonlist-ranking/internal/domain"
)

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts user. The first account ever created is stored as
	// admin regardless of user.IsAdmin; the stored flags are written back.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListModerators(ctx context.Context) ([]domain.User, error)
}

// PositionWriter moves demons inside a reorder transaction.
type PositionWriter interface {
	// SetPosition moves a demon of the partition. points is left unchanged when nil.
	SetPosition(ctx context.Context, demonID string, position int, points *int) error
}

// DemonStore persists demons. An empty list type means every partition.
type DemonStore interface {
	ListDemons(ctx context.Context, listType domain.ListType) ([]domain.Demon, error)
	GetDemon(ctx context.Context, id string) (*domain.Demon, error)
	// CreateDemon inserts demon, shifting demons at or below its position in
	// the same partition down by one.
	CreateDemon(ctx context.Context, demon *domain.Demon) error
	UpdateDemon(ctx context.Context, demon *domain.Demon) error
	DeleteDemon(ctx context.Context, id string) error
	// ReorderTx runs fn atomically for one partition. Nothing fn wrote is kept
	// when it returns an error.
	ReorderTx(ctx context.Context, listType domain.ListType, fn func(PositionWriter) error) error
}

// RecordStore persists records and applies lifecycle side effects atomically.
type RecordStore interface {
	CreateRecord(ctx context.Context, record *domain.Record) error
	GetRecord(ctx context.Context, id string) (*domain.Record, error)
	// ListRecords returns records newest first. An empty status means all.
	ListRecords(ctx context.Context, status domain.RecordStatus) ([]domain.RecordDetail, error)
	ListRecordsByUser(ctx context.Context, userID string) ([]domain.Record, error)
	ListApprovedRecordsByDemon(ctx context.Context, demonID string) ([]domain.RecordDetail, error)
	// ReviewRecord moves a pending record to status. Approval increments the
	// demon's completion count in the same transaction. Returns
	// ErrInvalidTransition when the record is no longer pending.
	ReviewRecord(ctx context.Context, id string, status domain.RecordStatus, reviewerID string, at time.Time) (*domain.Record, error)
	// DeleteRecord removes a record and returns it. Deleting an approved record
	// decrements the demon's completion count, never below zero.
	DeleteRecord(ctx context.Context, id string) (*domain.Record, error)
}

// PackStore persists packs and their membership.
type PackStore interface {
	ListPacks(ctx context.Context, listType domain.ListType) ([]domain.Pack, error)
	GetPack(ctx context.Context, id string) (*domain.Pack, error)
	CreatePack(ctx context.Context, pack *domain.Pack) error
	UpdatePack(ctx context.Context, pack *domain.Pack) error
	DeletePack(ctx context.Context, id string) error
	// AddPackLevel is a no-op when the demon is already a member.
	AddPackLevel(ctx context.Context, packID, demonID string) error
	RemovePackLevel(ctx context.Context, packID, demonID string) error
	// PackLevels returns member demons ordered by position.
	PackLevels(ctx context.Context, packID string) ([]domain.Demon, error)
	// PackMembers maps pack id to member demon ids for packs of listType.
	PackMembers(ctx context.Context, listType domain.ListType) (map[string][]string, error)
}

// RankingStore answers the aggregate queries behind the leaderboard.
type RankingStore interface {
	// CompletionTallies sums demon points over approved records per user.
	CompletionTallies(ctx context.Context, listType domain.ListType) (map[string]domain.PointTally, error)
	// VerifierTallies sums demon points over verified demons per user.
	VerifierTallies(ctx context.Context, listType domain.ListType) (map[string]domain.PointTally, error)
	// CreditedDemonIDs is the set of demons a user has an approved record for or verified.
	CreditedDemonIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	// CompletedDemons returns one demon per approved record of the user.
	CompletedDemons(ctx context.Context, userID string, listType domain.ListType) ([]domain.Demon, error)
	VerifiedDemons(ctx context.Context, userID string, listType domain.ListType) ([]domain.Demon, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Store is the full persistence contract used by the services.
type Store interface {
	UserStore
	DemonStore
	RecordStore
	PackStore
	RankingStore
}

// EventPublisher receives moderation events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }

// NoopPublisher drops every event.
func NoopPublisher() EventPublisher { return noopPublisher{} }
