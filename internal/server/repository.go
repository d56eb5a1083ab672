package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sqids/sqids-go"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

var (
	// ErrUserNotFound is returned when no row matches the requested id.
	ErrUserNotFound = errors.New("server: user not found")
	// ErrUserExists is returned when creating a user whose id is taken.
	ErrUserExists = errors.New("server: user already exists")
)

// userRecord is the users table row. List-valued columns are stored as JSON.
type userRecord struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;size:64;not null"`
	UserID    string `gorm:"index;size:64"`
	Username  string `gorm:"not null"`
	DOB       string `gorm:"size:10"`
	Age       int
	Gender    string            `gorm:"size:16"`
	Languages []string          `gorm:"serializer:json"`
	Documents []entity.Document `gorm:"serializer:json"`
	Photo     *entity.Document  `gorm:"serializer:json"`
	Addresses []entity.Address  `gorm:"serializer:json"`
	CreatedAt string            `gorm:"size:10"`
	UpdatedAt string            `gorm:"size:10"`
}

func (userRecord) TableName() string { return "users" }

func recordFromUser(user entity.User) userRecord {
	return userRecord{
		ID:        user.ID,
		UserID:    user.UserID,
		Username:  user.Username,
		DOB:       user.DOB,
		Age:       user.Age,
		Gender:    string(user.Gender),
		Languages: user.Languages,
		Documents: user.Documents,
		Photo:     user.Photo,
		Addresses: user.Addresses,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (r userRecord) user() entity.User {
	user := entity.User{
		ID:        r.ID,
		UserID:    r.UserID,
		Username:  r.Username,
		DOB:       r.DOB,
		Age:       r.Age,
		Gender:    entity.Gender(r.Gender),
		Languages: r.Languages,
		Documents: r.Documents,
		Photo:     r.Photo,
		Addresses: r.Addresses,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if user.Documents == nil {
		user.Documents = []entity.Document{}
	}
	if user.Addresses == nil {
		user.Addresses = []entity.Address{}
	}
	return user
}

// Repository persists users with gorm.
type Repository struct {
	db  *gorm.DB
	ids *sqids.Sqids
}

// OpenSQLite opens (or creates) the sqlite database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("server: open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("server: open sqlite %s: %w", path, err)
	}
	// sqlite serialises writers and ":memory:" is per connection.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// NewRepository migrates the users table. Generated userId values are at
// least idMinLength characters long.
func NewRepository(db *gorm.DB, idMinLength int) (*Repository, error) {
	if db == nil {
		return nil, errors.New("server: database is required")
	}
	if idMinLength < 0 {
		idMinLength = 0
	}
	ids, err := sqids.New(sqids.Options{
		Alphabet:  "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		MinLength: uint8(min(idMinLength, 255)),
	})
	if err != nil {
		return nil, fmt.Errorf("server: configure id encoder: %w", err)
	}
	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, fmt.Errorf("server: migrate users: %w", err)
	}
	return &Repository{db: db, ids: ids}, nil
}

// List returns every user in creation order.
func (r *Repository) List(ctx context.Context) ([]entity.User, error) {
	var rows []userRecord
	if err := r.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("server: list users: %w", err)
	}
	users := make([]entity.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

// Get loads the user stored under id.
func (r *Repository) Get(ctx context.Context, id string) (entity.User, error) {
	row, err := r.find(ctx, r.db, id)
	if err != nil {
		return entity.User{}, err
	}
	return row.user(), nil
}

// Create inserts user. An empty UserID is replaced by one encoded from the
// row sequence.
func (r *Repository) Create(ctx context.Context, user entity.User) (entity.User, error) {
	row := recordFromUser(user)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrUserExists, row.ID)
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if row.UserID != "" {
			return nil
		}
		userID, err := r.ids.Encode([]uint64{row.Seq})
		if err != nil {
			return fmt.Errorf("encode user id: %w", err)
		}
		row.UserID = userID
		return tx.Model(&row).Update("user_id", userID).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return entity.User{}, err
		}
		return entity.User{}, fmt.Errorf("server: create user: %w", err)
	}
	return row.user(), nil
}

// Update replaces the stored user. CreatedAt and a missing UserID are kept
// from the existing row.
func (r *Repository) Update(ctx context.Context, id string, user entity.User) (entity.User, error) {
	var updated userRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.find(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = recordFromUser(user)
		updated.Seq = current.Seq
		updated.ID = current.ID
		if updated.UserID == "" {
			updated.UserID = current.UserID
		}
		if current.CreatedAt != "" {
			updated.CreatedAt = current.CreatedAt
		}
		return tx.Save(&updated).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return entity.User{}, err
		}
		return entity.User{}, fmt.Errorf("server: update user %s: %w", id, err)
	}
	return updated.user(), nil
}

// Delete removes the user stored under id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if res.Error != nil {
		return fmt.Errorf("server: delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}

func (r *Repository) find(ctx context.Context, db *gorm.DB, id string) (userRecord, error) {
	var row userRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return userRecord{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return userRecord{}, fmt.Errorf("server: get user %s: %w", id, err)
	}
	return row, nil
}
