package user

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"armory-backend/internal/application/audit"
	"armory-backend/internal/application/policies/access"
	policies "armory-backend/internal/application/policies/user"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/pkg/query"
	"armory-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("User not found")
	ErrEmailTaken      = errors.New("Email already registered")
	ErrUserNameTaken   = errors.New("Username already registered")
	ErrInvalidEmail    = errors.New("Invalid email format")
	ErrInvalidPassword = errors.New("Invalid password format")
	ErrInvalidFullname = errors.New("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	ErrUserNameMissing = errors.New("Username is required and must be a non-empty string")
)

// Service holds DB and Redis for user operations.
type Service struct {
	DB    *gorm.DB
	Rdb   *redis.Client
	Audit audit.Recorder
}

type CreateUserInput struct {
	UserName     string  `json:"user_name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Fullname     string  `json:"fullname"`
	Role         string  `json:"role"`
	AssignedBase *string `json:"assigned_base"`
}

// CreateUser creates an operator account. Only admins may call it.
func (s *Service) CreateUser(ctx context.Context, actor access.Principal, in CreateUserInput) (*domain.User, error) {
	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		return nil, ErrUserNameMissing
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	fullname := strings.TrimSpace(in.Fullname)
	if !validation.IsValidFullname(fullname) {
		return nil, ErrInvalidFullname
	}
	base := normalizeBase(in.AssignedBase)
	if err := policies.ValidateRoleAssignment(s.DB.WithContext(ctx), policies.ValidateRoleAssignmentParams{
		ActorRole:    actor.Role,
		ActorUserID:  actor.UserID,
		TargetRole:   in.Role,
		AssignedBase: base,
	}); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}
	if err := s.DB.WithContext(ctx).Where("user_name = ?", userName).First(&existing).Error; err == nil {
		return nil, ErrUserNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}
	if in.Role == constants.Admin {
		base = nil
	}
	u := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     titleCaseAndNormalize(fullname),
		Role:         in.Role,
		AssignedBase: base,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionCreate, u)
	return u, nil
}

// ViewUser returns user by ID.
func (s *Service) ViewUser(ctx context.Context, userID string) (*domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrUserNotFound
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

type ListFilter struct {
	Role string
	Base string
	Page query.Page
}

func (s *Service) ListUsers(ctx context.Context, f ListFilter) ([]domain.User, int64, error) {
	q := s.DB.WithContext(ctx).Model(&domain.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Base != "" {
		q = q.Where("assigned_base = ?", f.Base)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := f.Page.Apply(q).Order("fullname ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type UpdateUserRoleInput struct {
	TargetUserID string  `json:"-"`
	Role         string  `json:"role"`
	AssignedBase *string `json:"assigned_base"`
}

// UpdateUserRole changes a user's role and base after the governance checks and
// drops the user's sessions so the new scope applies immediately.
func (s *Service) UpdateUserRole(ctx context.Context, actor access.Principal, in UpdateUserRoleInput) (*domain.User, error) {
	base := normalizeBase(in.AssignedBase)
	if err := policies.ValidateRoleAssignment(s.DB.WithContext(ctx), policies.ValidateRoleAssignmentParams{
		ActorRole:    actor.Role,
		ActorUserID:  actor.UserID,
		TargetUserID: in.TargetUserID,
		TargetRole:   in.Role,
		AssignedBase: base,
	}); err != nil {
		return nil, err
	}
	if in.Role == constants.Admin {
		base = nil
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", in.TargetUserID).
		Updates(map[string]interface{}{"role": in.Role, "assigned_base": base})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	u, err := s.ViewUser(ctx, in.TargetUserID)
	if err != nil {
		return nil, err
	}
	policies.DestroyUserSessions(ctx, s.Rdb, in.TargetUserID)
	s.record(ctx, actor, audit.ActionUpdate, u)
	return u, nil
}

func (s *Service) record(ctx context.Context, actor access.Principal, action string, u *domain.User) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       actor.UserID,
		Action:       action,
		ResourceType: audit.ResourceUser,
		ResourceID:   u.UserID.String(),
		Details: map[string]interface{}{
			"role":          u.Role,
			"assigned_base": u.Base(),
		},
	})
}

func normalizeBase(b *string) *string {
	if b == nil {
		return nil
	}
	v := validation.NormalizeLabel(*b)
	if v == "" {
		return nil
	}
	return &v
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
