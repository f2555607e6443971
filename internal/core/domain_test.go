package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"CREDIT", Credit, true},
		{"credit", Credit, true},
		{" Debit ", Debit, true},
		{"1", Credit, true},
		{"0", Debit, true},
		{"2", 0, false},
		{"refund", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnknownType) {
			t.Fatalf("%q expected unknown type error, got %v", tc.in, err)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	credit := Transaction{Amount: NewMoney(300), Type: Credit}
	debit := Transaction{Amount: NewMoney(50), Type: Debit}

	if got := credit.Signed(); got.Cents != 30000 {
		t.Fatalf("credit signed = %d", got.Cents)
	}
	if got := debit.Signed(); got.Cents != -5000 {
		t.Fatalf("debit signed = %d", got.Cents)
	}
}

func TestTransactionDisplayName(t *testing.T) {
	tx := Transaction{Name: "Groceries week 2", Type: Debit}
	if got := tx.DisplayName(); got != "T0-GROCERIES WEEK 2" {
		t.Fatalf("unexpected display name %q", got)
	}
	tx.Type = Credit
	if got := tx.DisplayName(); got != "T1-GROCERIES WEEK 2" {
		t.Fatalf("unexpected display name %q", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Name: "ok", Amount: NewMoney(0), Type: Credit, AccountID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	good.Amount = Money{Cents: MaxAmountCents}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected largest amount to pass, got %v", err)
	}

	bads := []Transaction{
		{Name: "", Amount: NewMoney(1), Type: Credit},
		{Name: "a", Amount: Money{Cents: -1}, Type: Credit},
		{Name: "a", Amount: NewMoney(1), Type: TransactionType(7)},
		{Name: strings.Repeat("x", 257), Amount: NewMoney(1), Type: Debit},
		{Name: "a", Amount: Money{Cents: MaxAmountCents + 1}, Type: Credit},
		{Name: "a", Amount: Money{Cents: 5_000_000_000_000_000_000}, Type: Debit},
	}
	for i, tx := range bads {
		err := tx.Validate()
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d expected invalid argument, got %v", i, err)
		}
	}
}

func TestUserAndAccountValidate(t *testing.T) {
	if err := (User{Name: "Ada", Email: "ada@example.com"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Name: "Ada"}).Validate(); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected empty email, got %v", err)
	}
	if err := (Account{Name: "Checking", UserID: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "Checking"}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	for _, cents := range []int64{MaxAmountCents + 1, -MaxAmountCents - 1} {
		a := Account{Name: "Checking", UserID: 1, OpeningBalance: Money{Cents: cents}}
		if err := a.Validate(); !errors.Is(err, ErrAmountOutOfRange) {
			t.Fatalf("opening %d expected out of range, got %v", cents, err)
		}
	}
}
