package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Photographer{},
		&Collection{},
		&Photo{},
		&Order{},
		&OrderItem{},
		&Balance{},
		&WithdrawalRequest{},
		&LedgerEntry{},
		&PlatformConfig{},
		&Notification{},
		&AdminActivity{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
