package models

// Debt is one directed edge of the cake ledger: debtor owes creditor
// Outstanding cakes for shutout losses. The reverse direction is a separate
// edge and is never netted implicitly.
type Debt struct {
	ID          int `json:"id" db:"id"`
	DebtorID    int `json:"debtor_id" db:"debtor_id"`
	CreditorID  int `json:"creditor_id" db:"creditor_id"`
	Outstanding int `json:"outstanding" db:"outstanding"`
}
