package constants

var allRoles = []string{Admin, BaseCommander, LogisticsOfficer}

// PermissionRoles maps each permission to the roles allowed to perform it. Base
// scoping for non-admin roles is applied on top of this by the access gate.
var PermissionRoles = map[string][]string{
	ViewAssets:   allRoles,
	ManageAssets: allRoles,
	DeleteAsset:  {Admin},

	ViewPurchases:   allRoles,
	CreatePurchase:  {Admin, LogisticsOfficer},
	DeliverPurchase: allRoles,
	CancelPurchase:  allRoles,

	ViewTransfers:    allRoles,
	CreateTransfer:   allRoles,
	ApproveTransfer:  {Admin, BaseCommander},
	CancelTransfer:   allRoles,
	RecoverTransfers: {Admin},

	ViewAssignments:        allRoles,
	CreateAssignment:       allRoles,
	ReturnAssignment:       allRoles,
	ChangeAssignmentStatus: {Admin, BaseCommander},

	ViewExpenditures:  allRoles,
	CreateExpenditure: allRoles,
	DeleteExpenditure: {Admin},

	ManageUsers:   {Admin},
	ViewAuditLogs: {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
