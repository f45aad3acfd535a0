package policies

import (
	"errors"
	"strings"

	"armory-backend/internal/constants"
	"armory-backend/internal/domain"

	"gorm.io/gorm"
)

type ValidateRoleAssignmentParams struct {
	ActorRole    string
	ActorUserID  string
	TargetUserID string
	TargetRole   string
	AssignedBase *string
}

// ValidateRoleAssignment checks a role/base change (or a new user's role when
// TargetUserID is empty). Returns nil on success.
func ValidateRoleAssignment(db *gorm.DB, params ValidateRoleAssignmentParams) error {
	if params.ActorRole != constants.Admin {
		return ErrOnlyAdminsCanManageUsers
	}
	if !constants.IsValidRole(params.TargetRole) {
		return ErrInvalidRole
	}
	if params.TargetRole != constants.Admin &&
		(params.AssignedBase == nil || strings.TrimSpace(*params.AssignedBase) == "") {
		return ErrAssignedBaseRequired
	}
	if params.TargetUserID == "" {
		return nil
	}
	if params.ActorUserID == params.TargetUserID {
		return ErrUsersCannotModifyTheirOwnRole
	}
	var target domain.User
	if err := db.Where("user_id = ?", params.TargetUserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTargetUserNotFound
		}
		return err
	}
	if target.Role == constants.Admin && params.TargetRole != constants.Admin {
		var count int64
		if err := db.Model(&domain.User{}).Where("role = ?", constants.Admin).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return ErrMustHaveAtLeastOneAdmin
		}
	}
	return nil
}
