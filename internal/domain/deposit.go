package domain

// DepositMethod identifies which detection method established a
// member's deposit-paid status.
type DepositMethod string

const (
	DepositMethodMemberTable  DepositMethod = "MEMBER_TABLE"
	DepositMethodCustodyEvent DepositMethod = "CUSTODY_EVENT"
	DepositMethodUnknown      DepositMethod = "UNKNOWN"
)

// String returns the string representation of DepositMethod.
func (m DepositMethod) String() string {
	return string(m)
}

// DepositRecord is the per (circle, address) security-deposit status.
// Created transiently per query; not persisted.
type DepositRecord struct {
	CircleID string
	Address  string
	Paid     bool
	Method   DepositMethod // UNKNOWN when no evidence was found
}
