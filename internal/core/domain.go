package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransactionType values match the numeric codes stored in the transactions table.
const (
	Debit  TransactionType = 0
	Credit TransactionType = 1
)

const (
	maxNameLength  = 256
	maxEmailLength = 512
)

type (
	TransactionType int

	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		AccountCount int64     `json:"account_count"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Account struct {
		ID               int64     `json:"id"`
		Name             string    `json:"name"`
		OpeningBalance   Money     `json:"opening_balance"`
		Balance          Money     `json:"balance"`
		TransactionCount int64     `json:"transaction_count"`
		UserID           int64     `json:"user_id"`
		CreatedAt        time.Time `json:"created_at"`
	}

	Transaction struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Amount    Money           `json:"amount"`
		Type      TransactionType `json:"type"`
		AccountID int64           `json:"account_id"`
		CreatedAt time.Time       `json:"created_at"`
	}
)

// ParseTransactionType accepts CREDIT/DEBIT in any case as well as the
// numeric codes 1 and 0.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CREDIT", "1":
		return Credit, nil
	case "DEBIT", "0":
		return Debit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t TransactionType) String() string {
	switch t {
	case Credit:
		return "CREDIT"
	case Debit:
		return "DEBIT"
	}
	return "TransactionType(" + strconv.Itoa(int(t)) + ")"
}

// Code returns the numeric storage code of the type.
func (t TransactionType) Code() int {
	return int(t)
}

func (t TransactionType) Validate() error {
	if t != Credit && t != Debit {
		return fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return nil
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Signed returns the amount with the sign its type applies to the balance:
// credits add, debits subtract.
func (t Transaction) Signed() Money {
	if t.Type == Credit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// DisplayName renders the presentation form of the name, e.g. "T1-RENT".
func (t Transaction) DisplayName() string {
	return "T" + strconv.Itoa(t.Type.Code()) + "-" + strings.ToUpper(t.Name)
}

func (t Transaction) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !t.Amount.InRange() {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, t.Amount)
	}
	return t.Type.Validate()
}

func (u User) Validate() error {
	if err := validateName(u.Name); err != nil {
		return err
	}
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email too long (max %d characters)", ErrInvalidArgument, maxEmailLength)
	}
	return nil
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if a.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrInvalidArgument)
	}
	if !a.OpeningBalance.InRange() {
		return fmt.Errorf("%w: opening balance %s", ErrAmountOutOfRange, a.OpeningBalance)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidArgument, maxNameLength)
	}
	return nil
}
