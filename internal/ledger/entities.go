package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// Direction is the side of a movement relative to the account it posts to.
type Direction string

const (
	// DirectionCredit increases the account balance.
	DirectionCredit Direction = "credit"
	// DirectionDebit decreases the account balance.
	DirectionDebit Direction = "debit"
)

// OriginKind names the operation that produced a movement.
type OriginKind string

const (
	OriginPayablePayment    OriginKind = "payable_payment"
	OriginReceivablePayment OriginKind = "receivable_payment"
	OriginTransferIn        OriginKind = "transfer_in"
	OriginTransferOut       OriginKind = "transfer_out"
)

// AccountKind classifies a financial account.
type AccountKind string

const (
	// AccountKindCurrent is a bank (checking) account.
	AccountKindCurrent AccountKind = "current"
	// AccountKindCash is physical cash held by the school.
	AccountKindCash AccountKind = "cash"
)

// CounterpartyKind tells whether a counterparty may be used on payables, receivables or both.
type CounterpartyKind string

const (
	CounterpartyVendor CounterpartyKind = "vendor"
	CounterpartyPayer  CounterpartyKind = "payer"
	CounterpartyBoth   CounterpartyKind = "both"
)

// CategoryFlow tells whether a category may be used on payables, receivables or both.
type CategoryFlow string

const (
	FlowPayable    CategoryFlow = "payable"
	FlowReceivable CategoryFlow = "receivable"
	FlowBoth       CategoryFlow = "both"
)

// PayableStatus is the lifecycle state of a payable.
type PayableStatus string

const (
	PayablePending PayableStatus = "pending"
	PayablePaid    PayableStatus = "paid"
)

// ReceivableStatus is the lifecycle state of a receivable.
type ReceivableStatus string

const (
	ReceivablePending  ReceivableStatus = "pending"
	ReceivableReceived ReceivableStatus = "received"
)

// ReceivableSource tells how a receivable came to exist.
type ReceivableSource string

const (
	SourceManual      ReceivableSource = "manual"
	SourceInstallment ReceivableSource = "installment"
)

// BillingMode selects which payment instrument is issued for a contract's installments.
type BillingMode string

const (
	// BillingProviderBoleto issues a bank boleto with hosted url and pdf.
	BillingProviderBoleto BillingMode = "provider_boleto"
	// BillingSchoolBooklet issues a booklet (carnê) code printed by the school.
	BillingSchoolBooklet BillingMode = "school_booklet"
	// BillingSchoolBookletPix issues a booklet code plus a PIX static payload.
	BillingSchoolBookletPix BillingMode = "school_booklet_pix"
)

// InstallmentStatus is the lifecycle state of an installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentOverdue InstallmentStatus = "overdue"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Billable reports whether instruments and notifications still apply to the installment.
func (s InstallmentStatus) Billable() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

// ContractStatusActive is the only status a contract is created with.
const ContractStatusActive = "active"

// RoleFinancialGuardian marks a person who may pay for or receive billing of a contract.
const RoleFinancialGuardian = "financial_guardian"

// Account is a tenant's money container. Its balance is never stored.
type Account struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	Kind           AccountKind
	InitialBalance money.Amount
	Active         bool
	CreatedAt      time.Time
}

// AccountBalance pairs an account with its balance derived from movements.
type AccountBalance struct {
	Account
	Credits money.Amount
	Debits  money.Amount
	Balance money.Amount
}

// Movement is one append-only posting against a single account.
type Movement struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	AccountID  uuid.UUID
	Direction  Direction
	OriginKind OriginKind
	OriginID   uuid.UUID
	Date       time.Time
	Amount     money.Amount
	Note       *string
	CreatedAt  time.Time
}

// Totals are the credit and debit sums, in cents, of an account's movements.
type Totals struct {
	CreditMinor int64
	DebitMinor  int64
}

type Counterparty struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Kind      CounterpartyKind
	Active    bool
	CreatedAt time.Time
}

// Accepts reports whether the counterparty can be used where want is expected.
func (c Counterparty) Accepts(want CounterpartyKind) bool {
	return c.Kind == CounterpartyBoth || c.Kind == want
}

type Category struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Flow      CategoryFlow
	Active    bool
	CreatedAt time.Time
}

// Accepts reports whether the category can be used where want is expected.
func (c Category) Accepts(want CategoryFlow) bool {
	return c.Flow == FlowBoth || c.Flow == want
}

// Payable is money the school owes.
type Payable struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Description          string
	VendorPersonID       *uuid.UUID
	VendorCounterpartyID *uuid.UUID
	CategoryID           *uuid.UUID
	// LegacyVendorName and LegacyCategory predate the normalized references and are
	// only read as a display fallback.
	LegacyVendorName *string
	LegacyCategory   *string
	DueDate          time.Time
	Amount           money.Amount
	Status           PayableStatus
	AccountID        *uuid.UUID
	PaidAt           *time.Time
	CreatedAt        time.Time
}

// Receivable is money owed to the school.
type Receivable struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	Description         string
	PayerPersonID       *uuid.UUID
	PayerCounterpartyID *uuid.UUID
	CategoryID          *uuid.UUID
	LegacyPayerName     *string
	LegacyCategory      *string
	DueDate             time.Time
	Amount              money.Amount
	Status              ReceivableStatus
	Source              ReceivableSource
	ContractID          *uuid.UUID
	InstallmentID       *uuid.UUID
	StudentID           *uuid.UUID
	AccountID           *uuid.UUID
	ReceivedAt          *time.Time
	CreatedAt           time.Time
}

// Contract is a billing agreement for a student, split into installments.
type Contract struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	StudentID           uuid.UUID
	PayerPersonID       *uuid.UUID
	RecipientPersonIDs  []uuid.UUID
	Description         string
	TotalAmount         money.Amount
	InstallmentsCount   int
	FirstDueDate        time.Time
	DueDay              *int
	BillingMode         BillingMode
	PixKey              *string
	PaymentInstructions *string
	Status              string
	CreatedAt           time.Time
	Installments        []Installment
}

// Installment is one scheduled slice of a contract's total.
type Installment struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	TenantID   uuid.UUID
	Number     int
	DueDate    time.Time
	Amount     money.Amount
	Status     InstallmentStatus
	Instrument
	EmailedAt *time.Time
	PaidAt    *time.Time
}

// Instrument holds the payment artifacts generated for an installment.
type Instrument struct {
	BoletoCode          *string
	BoletoURL           *string
	BoletoPDFURL        *string
	PixCopyPaste        *string
	PaymentInstructions *string
}

// Transfer moves money between two accounts of the same tenant.
type Transfer struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Date          time.Time
	Amount        money.Amount
	Note          *string
	CreatedAt     time.Time
}

// EmailLog records a notification the core decided to send. Nothing is transmitted.
type EmailLog struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ContractID        uuid.UUID
	InstallmentID     uuid.UUID
	RecipientPersonID uuid.UUID
	RecipientEmail    string
	Subject           string
	Body              string
	SentAt            time.Time
}

// Person is a record of the wider school system (guardian, vendor contact...).
type Person struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
	Email    *string
	Phone    *string
	Document *string
	Active   bool
	Roles    []string
}

// HasRole reports whether the person holds role.
func (p Person) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Student is read from the wider school system. Name is the display name:
// the linked person's full name when present, else the student's own name.
type Student struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	PersonID *uuid.UUID
}

// School carries the tenant header fields used on contracts and statements.
type School struct {
	TenantID         uuid.UUID
	Name             string
	Code             string
	City             *string
	SignatureName    *string
	ContractTemplate *string
}
