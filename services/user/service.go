package user

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
	"readingbot/pkg/repository"
)

var ErrUserNotFound = errors.New("user not found")

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	users repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		users: repository.ProvideStore[User](p.DB),
	}
}

// Register creates the user on first contact and refreshes the profile on
// later ones. It is safe to call on every incoming message.
func (s *Service) Register(ctx context.Context, p Profile) (*User, error) {
	if p.TelegramID == 0 {
		return nil, errutil.BadRequest("telegram id is required", nil)
	}

	now := time.Now()
	u := &User{
		ID:         s.node.Generate().String(),
		TelegramID: p.TelegramID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   p.Username,
		IsBot:      p.IsBot,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "updated_at"}),
	}).Create(u).Error; err != nil {
		logger.L(ctx).Error("failed to register user", zap.Int64("telegram_id", p.TelegramID), zap.Error(err))
		return nil, err
	}

	return s.GetByTelegramID(ctx, p.TelegramID)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.FindOne(ctx, &User{ID: id})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", ErrUserNotFound)
	}
	return u, nil
}

func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	u, err := s.users.FindOne(ctx, &User{TelegramID: telegramID})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", ErrUserNotFound)
	}
	return u, nil
}

// Recipient returns the chat id messages for the user are sent to.
func (s *Service) Recipient(ctx context.Context, userID string) (string, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(u.TelegramID, 10), nil
}
