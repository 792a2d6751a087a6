package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory/consts"
)

// Dialects accepted by Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectMSSQL    = "mssql"
)

// Memory implements memory.Store using GORM.
type Memory struct {
	db *gorm.DB
}

// UserModel is the users table.
type UserModel struct {
	ID             string `gorm:"primaryKey;size:255"`
	Email          string `gorm:"uniqueIndex;size:255;not null"`
	HashedPassword string `gorm:"not null"`
	FullName       string
	CreatedAt      time.Time
}

func (UserModel) TableName() string { return consts.TableUsers }

// DocumentModel is the documents table.
type DocumentModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"index;size:255;not null"`
	Name       string    `gorm:"not null"`
	StoredName string    `gorm:"not null"`
	UploadTime time.Time `gorm:"index"`
}

func (DocumentModel) TableName() string { return consts.TableDocuments }

// ChatEntryModel is the chat_history table. Sources hold a JSON array.
type ChatEntryModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;size:255;not null"`
	Question  string `gorm:"type:text"`
	Answer    string `gorm:"type:text"`
	Sources   string `gorm:"type:text"`
	Timestamp time.Time
}

func (ChatEntryModel) TableName() string { return consts.TableChatHistory }

// Open connects to dsn with the driver for dialect and migrates the schema.
func Open(dialect, dsn string) (*Memory, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(dialect) {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	case DialectMSSQL, "sqlserver":
		dialector = sqlserver.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported sql dialect %q", domain.ErrInvalidConfiguration, dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	return New(db)
}

// New creates a new Memory.
func New(db *gorm.DB) (*Memory, error) {
	if err := db.AutoMigrate(&UserModel{}, &DocumentModel{}, &ChatEntryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Memory{db: db}, nil
}

func (m *Memory) CreateUser(ctx context.Context, user domain.User) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where(consts.ColEmail+" = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrUserExists
		}

		err := tx.Create(&UserModel{
			ID:             user.ID,
			Email:          user.Email,
			HashedPassword: user.PasswordHash,
			FullName:       user.FullName,
			CreatedAt:      user.CreatedAt,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserExists
		}
		return err
	})
}

func (m *Memory) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel
	err := m.db.WithContext(ctx).Where(consts.ColEmail+" = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           model.ID,
		Email:        model.Email,
		PasswordHash: model.HashedPassword,
		FullName:     model.FullName,
		CreatedAt:    model.CreatedAt,
	}, nil
}

func (m *Memory) InsertDocument(ctx context.Context, doc domain.Document) error {
	return m.db.WithContext(ctx).Create(&DocumentModel{
		ID:         doc.ID,
		UserID:     doc.OwnerID,
		Name:       doc.Name,
		StoredName: doc.StoredName,
		UploadTime: doc.UploadedAt,
	}).Error
}

func (m *Memory) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	var models []DocumentModel
	err := m.db.WithContext(ctx).
		Where(consts.ColUserID+" = ?", ownerID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: consts.ColUploadTime}}).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(models))
	for i, model := range models {
		docs[i] = model.toDomain()
	}
	return docs, nil
}

func (m *Memory) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	var model DocumentModel
	err := m.db.WithContext(ctx).
		Where(consts.ColID+" = ? AND "+consts.ColUserID+" = ?", id, ownerID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	doc := model.toDomain()
	return &doc, nil
}

func (m *Memory) DeleteDocument(ctx context.Context, ownerID, id string) error {
	res := m.db.WithContext(ctx).
		Where(consts.ColID+" = ? AND "+consts.ColUserID+" = ?", id, ownerID).
		Delete(&DocumentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (m *Memory) AppendHistory(ctx context.Context, entry domain.ChatEntry) error {
	sources, err := domain.EncodeSources(entry.Sources)
	if err != nil {
		return err
	}
	return m.db.WithContext(ctx).Create(&ChatEntryModel{
		UserID:    entry.OwnerID,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Sources:   sources,
		Timestamp: entry.Timestamp,
	}).Error
}

func (m *Memory) ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error) {
	var models []ChatEntryModel
	err := m.db.WithContext(ctx).
		Where(consts.ColUserID+" = ?", ownerID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: consts.ColTimestamp}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: consts.ColID}}).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ChatEntry, len(models))
	for i, model := range models {
		sources, err := domain.DecodeSources(model.Sources)
		if err != nil {
			return nil, fmt.Errorf("chat entry %d: %w", model.ID, err)
		}
		entries[i] = domain.ChatEntry{
			ID:        fmt.Sprint(model.ID),
			OwnerID:   model.UserID,
			Question:  model.Question,
			Answer:    model.Answer,
			Sources:   sources,
			Timestamp: model.Timestamp,
		}
	}
	return entries, nil
}

func (m *Memory) ClearHistory(ctx context.Context, ownerID string) error {
	return m.db.WithContext(ctx).Where(consts.ColUserID+" = ?", ownerID).Delete(&ChatEntryModel{}).Error
}

func (m *Memory) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Memory) Close(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d DocumentModel) toDomain() domain.Document {
	return domain.Document{
		ID:         d.ID,
		OwnerID:    d.UserID,
		Name:       d.Name,
		StoredName: d.StoredName,
		UploadedAt: d.UploadTime,
	}
}
