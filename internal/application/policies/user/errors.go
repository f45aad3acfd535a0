package policies

import "errors"

var (
	ErrOnlyAdminsCanManageUsers      = errors.New("Only admins can manage users")
	ErrInvalidRole                   = errors.New("Invalid role")
	ErrAssignedBaseRequired          = errors.New("Base commanders and logistics officers must have an assigned base")
	ErrTargetUserNotFound            = errors.New("Target user not found")
	ErrUsersCannotModifyTheirOwnRole = errors.New("Users cannot modify their own role")
	ErrMustHaveAtLeastOneAdmin       = errors.New("There must be at least one admin")
)
