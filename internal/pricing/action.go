package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vigor/rate-engine/internal/asset"
)

var (
	ErrInvalidLeg       = errors.New("pricing: invalid loan leg")
	ErrNegativeAmount   = errors.New("pricing: amount must not be negative")
	ErrUnknownLoanType  = errors.New("pricing: unknown loan type")
	ErrUnknownDirection = errors.New("pricing: unknown action direction")
)

// LoanType selects one of the two loan books.
type LoanType int

const (
	// LoanVigor borrows VIGOR against crypto collateral.
	LoanVigor LoanType = iota + 1
	// LoanCrypto borrows crypto against VIGOR collateral.
	LoanCrypto
)

func (l LoanType) String() string {
	switch l {
	case LoanVigor:
		return "vigor"
	case LoanCrypto:
		return "crypto"
	default:
		return fmt.Sprintf("LoanType(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l LoanType) MarshalText() ([]byte, error) {
	if l != LoanVigor && l != LoanCrypto {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLoanType, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LoanType) UnmarshalText(text []byte) error {
	parsed, err := ParseLoanType(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLoanType accepts "vigor" or "crypto", case-insensitively.
func ParseLoanType(s string) (LoanType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vigor":
		return LoanVigor, nil
	case "crypto":
		return LoanCrypto, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLoanType, s)
	}
}

// defaultCollateral and defaultDebt name the zero leg used when an action
// only touches the other side.
func (l LoanType) defaultCollateral() string {
	if l == LoanCrypto {
		return asset.VIGOR
	}
	return asset.VIG
}

func (l LoanType) defaultDebt() string {
	if l == LoanCrypto {
		return asset.VIG
	}
	return asset.VIGOR
}

// Direction is what the action does to the loan book.
type Direction int

const (
	Deposit Direction = iota + 1
	Withdraw
	Borrow
	Repay
)

func (d Direction) String() string {
	switch d {
	case Deposit:
		return "deposit"
	case Withdraw:
		return "withdraw"
	case Borrow:
		return "borrow"
	case Repay:
		return "repay"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if d < Deposit || d > Repay {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts deposit, withdraw, borrow or repay.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return Deposit, nil
	case "withdraw":
		return Withdraw, nil
	case "borrow":
		return Borrow, nil
	case "repay":
		return Repay, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// touchesCollateral reports whether d changes the collateral leg rather
// than the debt leg.
func (d Direction) touchesCollateral() bool {
	return d == Deposit || d == Withdraw
}

// ResolveDelta turns a user action into the signed delta the pricing
// functions take. amount is the unsigned quantity the user typed; withdraw
// and repay negate it. The leg the action does not touch is a zero amount
// of the loan's default code.
func ResolveDelta(loan LoanType, dir Direction, amount asset.Asset) (Delta, error) {
	if loan != LoanVigor && loan != LoanCrypto {
		return Delta{}, fmt.Errorf("%w: %d", ErrUnknownLoanType, int(loan))
	}
	if dir < Deposit || dir > Repay {
		return Delta{}, fmt.Errorf("%w: %d", ErrUnknownDirection, int(dir))
	}
	if amount.IsNegative() {
		return Delta{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	signed := amount
	if dir == Withdraw || dir == Repay {
		signed = amount.Neg()
	}

	if err := checkLegCode(loan, dir, amount.Code); err != nil {
		return Delta{}, err
	}

	if dir.touchesCollateral() {
		return Delta{Collateral: signed, Debt: asset.Zero(loan.defaultDebt())}, nil
	}
	return Delta{Collateral: asset.Zero(loan.defaultCollateral()), Debt: signed}, nil
}

// checkLegCode enforces which side VIGOR sits on: it is the debt of a
// VIGOR loan and the collateral of a crypto loan, and never the other leg.
func checkLegCode(loan LoanType, dir Direction, code string) error {
	if code == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidLeg)
	}
	vigorSide := !dir.touchesCollateral()
	if loan == LoanCrypto {
		vigorSide = dir.touchesCollateral()
	}
	if vigorSide && code != asset.VIGOR {
		return fmt.Errorf("%w: %s %s needs VIGOR, got %s", ErrInvalidLeg, loan, dir, code)
	}
	if !vigorSide && code == asset.VIGOR {
		return fmt.Errorf("%w: %s %s cannot use VIGOR", ErrInvalidLeg, loan, dir)
	}
	return nil
}
