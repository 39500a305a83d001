package enums

// UserRole is the role claim carried in access tokens.
type UserRole string

const (
	UserRoleBuyer        UserRole = "BUYER"
	UserRolePhotographer UserRole = "PHOTOGRAPHER"
	UserRoleAdmin        UserRole = "ADMIN"
)

var userRoles = set[UserRole]{UserRoleBuyer, UserRolePhotographer, UserRoleAdmin}

func (r UserRole) IsValid() bool { return userRoles.has(r) }

type NotificationType string

const (
	NotificationTypeSale                NotificationType = "SALE"
	NotificationTypeOrderApproved       NotificationType = "ORDER_APPROVED"
	NotificationTypeWithdrawalProcessed NotificationType = "WITHDRAWAL_PROCESSED"
	NotificationTypeWithdrawalRejected  NotificationType = "WITHDRAWAL_REJECTED"
	NotificationTypeWithdrawalCancelled NotificationType = "WITHDRAWAL_CANCELLED"
)

var notificationTypes = set[NotificationType]{
	NotificationTypeSale,
	NotificationTypeOrderApproved,
	NotificationTypeWithdrawalProcessed,
	NotificationTypeWithdrawalRejected,
	NotificationTypeWithdrawalCancelled,
}

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }
