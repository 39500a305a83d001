package enums

type LedgerEntryKind string

const (
	LedgerEntryKindSale       LedgerEntryKind = "SALE"
	LedgerEntryKindWithdrawal LedgerEntryKind = "WITHDRAWAL"
	LedgerEntryKindCommission LedgerEntryKind = "COMMISSION"
)

var ledgerEntryKinds = set[LedgerEntryKind]{LedgerEntryKindSale, LedgerEntryKindWithdrawal, LedgerEntryKindCommission}

func (k LedgerEntryKind) IsValid() bool { return ledgerEntryKinds.has(k) }

type LedgerEntryStatus string

const (
	LedgerEntryStatusPending   LedgerEntryStatus = "PENDING"
	LedgerEntryStatusProcessed LedgerEntryStatus = "PROCESSED"
	LedgerEntryStatusFailed    LedgerEntryStatus = "FAILED"
)

var ledgerEntryStatuses = set[LedgerEntryStatus]{LedgerEntryStatusPending, LedgerEntryStatusProcessed, LedgerEntryStatusFailed}

func (s LedgerEntryStatus) IsValid() bool { return ledgerEntryStatuses.has(s) }

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessed WithdrawalStatus = "PROCESSED"
	WithdrawalStatusFailed    WithdrawalStatus = "FAILED"
	WithdrawalStatusCancelled WithdrawalStatus = "CANCELLED"
)

var withdrawalStatuses = set[WithdrawalStatus]{
	WithdrawalStatusPending,
	WithdrawalStatusProcessed,
	WithdrawalStatusFailed,
	WithdrawalStatusCancelled,
}

func (s WithdrawalStatus) IsValid() bool { return withdrawalStatuses.has(s) }

// IsTerminal is true for PROCESSED and CANCELLED. FAILED can still be retried.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusProcessed || s == WithdrawalStatusCancelled
}

// AdminAction labels rows in the admin activity log.
type AdminAction string

const (
	AdminActionPayoutProcessed       AdminAction = "PAYOUT_PROCESSED"
	AdminActionPayoutCancelled       AdminAction = "PAYOUT_CANCELLED"
	AdminActionPayoutRetried         AdminAction = "PAYOUT_RETRIED"
	AdminActionPayoutManualConfirmed AdminAction = "PAYOUT_MANUAL_CONFIRMED"
	AdminActionConfigUpdated         AdminAction = "CONFIG_UPDATED"
)

var adminActions = set[AdminAction]{
	AdminActionPayoutProcessed,
	AdminActionPayoutCancelled,
	AdminActionPayoutRetried,
	AdminActionPayoutManualConfirmed,
	AdminActionConfigUpdated,
}

func (a AdminAction) IsValid() bool { return adminActions.has(a) }
