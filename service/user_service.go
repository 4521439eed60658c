package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

type RegisterRequest struct {
	Name     string           `json:"name" validate:"required,max=120"`
	Phone    string           `json:"phone" validate:"max=32"`
	Role     models.Role      `json:"role" validate:"required"`
	Location *models.Location `json:"location"`
}

type ProfileUpdate struct {
	Name     string           `json:"name" validate:"required,max=120"`
	Phone    string           `json:"phone" validate:"max=32"`
	Location *models.Location `json:"location"`
}

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, actor models.Actor, id int64, upd ProfileUpdate) (*models.User, error)
	// LinkTelegram attaches a Telegram chat to the user registered with phone.
	LinkTelegram(ctx context.Context, phone string, telegramID int64) (*models.User, error)
}

type userService struct {
	stg storage.IUserStorage
	log logger.ILogger
}

func NewUserService(stg storage.IStorage, log logger.ILogger) UserService {
	return &userService{
		stg: stg.User(),
		log: log,
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, errs.NewValidationError("role", "must be donor, receiver or volunteer")
	}
	if err := validateLocation(req.Location); err != nil {
		return nil, err
	}

	user, err := s.stg.Create(ctx, &models.User{
		Name:     req.Name,
		Phone:    normalizePhone(req.Phone),
		Role:     req.Role,
		Location: req.Location,
	})
	if err != nil {
		return nil, duplicatePhone(err)
	}
	s.log.Info("user registered", logger.Int64("user_id", user.ID), logger.String("role", string(user.Role)))
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.stg.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", strconv.FormatInt(id, 10))
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor models.Actor, id int64, upd ProfileUpdate) (*models.User, error) {
	if actor.ID != id {
		return nil, errs.Forbidden("profiles can only be edited by their owner")
	}
	if err := validateStruct(upd); err != nil {
		return nil, err
	}
	if err := validateLocation(upd.Location); err != nil {
		return nil, err
	}

	user, err := s.stg.UpdateProfile(ctx, &models.User{
		ID:       id,
		Name:     upd.Name,
		Phone:    normalizePhone(upd.Phone),
		Location: upd.Location,
	})
	if err != nil {
		return nil, notFound(duplicatePhone(err), "user", strconv.FormatInt(id, 10))
	}
	return user, nil
}

func (s *userService) LinkTelegram(ctx context.Context, phone string, telegramID int64) (*models.User, error) {
	p := normalizePhone(phone)
	if p == nil {
		return nil, errs.NewValidationError("phone", "is required")
	}
	user, err := s.stg.GetByPhone(ctx, *p)
	if err != nil {
		return nil, notFound(err, "user", "")
	}
	if err := s.stg.SetTelegramID(ctx, user.ID, telegramID); err != nil {
		return nil, err
	}
	user.TelegramID = &telegramID
	s.log.Info("telegram linked", logger.Int64("user_id", user.ID))
	return user, nil
}

func duplicatePhone(err error) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return errs.NewValidationError("phone", "is already registered")
	}
	return err
}

func validateLocation(l *models.Location) error {
	if l == nil {
		return nil
	}
	return validateStruct(l)
}

// normalizePhone keeps digits only, so "+91 98765-43210" and the
// "919876543210" Telegram reports for the same contact match.
func normalizePhone(phone string) *string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	p := b.String()
	return &p
}
