package constants

const (
	ViewAssets   = "view_assets"
	ManageAssets = "manage_assets"
	DeleteAsset  = "delete_asset"

	ViewPurchases   = "view_purchases"
	CreatePurchase  = "create_purchase"
	DeliverPurchase = "deliver_purchase"
	CancelPurchase  = "cancel_purchase"

	ViewTransfers    = "view_transfers"
	CreateTransfer   = "create_transfer"
	ApproveTransfer  = "approve_transfer"
	CancelTransfer   = "cancel_transfer"
	RecoverTransfers = "recover_transfers"

	ViewAssignments        = "view_assignments"
	CreateAssignment       = "create_assignment"
	ReturnAssignment       = "return_assignment"
	ChangeAssignmentStatus = "change_assignment_status"

	ViewExpenditures  = "view_expenditures"
	CreateExpenditure = "create_expenditure"
	DeleteExpenditure = "delete_expenditure"

	ManageUsers   = "manage_users"
	ViewAuditLogs = "view_audit_logs"
)
