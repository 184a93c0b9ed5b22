package withdraw

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
)

// PaymentItem is a rent payment entry with its booking context.
type PaymentItem struct {
	EntryID      ledger.EntryID
	PaymentID    string
	Amount       decimal.Decimal
	Date         time.Time
	BookingID    string
	PropertyID   ledger.PropertyID
	PropertyName string
	RoomName     string
	GuestName    string
}

// PayoutItem is a withdrawal entry with its payout request.
type PayoutItem struct {
	EntryID       ledger.EntryID
	PayoutID      string
	Amount        decimal.Decimal
	Date          time.Time
	Status        billing.PayoutStatus
	BankName      string
	AccountNumber string
	AccountHolder string
}

type Breakdown struct {
	Balance  Balance
	Payments []PaymentItem
	Payouts  []PayoutItem
}

// GetBalanceBreakdown lists the latest payment and payout entries behind the
// withdrawable balance. A record the booking subsystem no longer has still
// appears, without metadata.
func (s *Service) GetBalanceBreakdown(ctx context.Context, tenant ledger.TenantID) (Breakdown, error) {
	b, payments, payouts, err := s.load(ctx, tenant)
	if err != nil {
		return Breakdown{}, err
	}
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := Breakdown{
		Balance:  b,
		Payments: make([]PaymentItem, 0, min(limit, len(payments))),
		Payouts:  make([]PayoutItem, 0, min(limit, len(payouts))),
	}
	for i, e := range payments {
		if i == limit {
			break
		}
		item := PaymentItem{EntryID: e.ID, PaymentID: e.OriginID, Amount: e.Amount, Date: e.Date, PropertyID: e.PropertyID}
		if s.Payments != nil {
			p, err := s.Payments.GetPayment(ctx, e.OriginID)
			if err != nil {
				return Breakdown{}, err
			}
			if p != nil {
				item.BookingID = p.BookingID
				item.PropertyName = p.PropertyName
				item.RoomName = p.RoomName
				item.GuestName = p.GuestName
			}
		}
		out.Payments = append(out.Payments, item)
	}
	for i, e := range payouts {
		if i == limit {
			break
		}
		item := PayoutItem{EntryID: e.ID, PayoutID: e.OriginID, Amount: e.Amount, Date: e.Date}
		if s.Payouts != nil {
			p, err := s.Payouts.GetPayout(ctx, e.OriginID)
			if err != nil {
				return Breakdown{}, err
			}
			if p != nil {
				item.Status = p.Status
				item.BankName = p.BankName
				item.AccountNumber = p.AccountNumber
				item.AccountHolder = p.AccountHolder
			}
		}
		out.Payouts = append(out.Payouts, item)
	}
	return out, nil
}
