package domain

import (
	"errors"
	"fmt"
)

// PaymentType is the payment arrangement of an order.
type PaymentType int

const (
	PaymentTypePrepaid       PaymentType = 1
	PaymentTypeSubscription  PaymentType = 2
	PaymentTypeInvoice       PaymentType = 3
	PaymentTypeNoCharge      PaymentType = 4
	PaymentTypePrepaidShared PaymentType = 5
)

var ErrUnknownPaymentType = errors.New("unknown_payment_type")

func ParsePaymentType(id int) (PaymentType, error) {
	switch pt := PaymentType(id); pt {
	case PaymentTypePrepaid, PaymentTypeSubscription, PaymentTypeInvoice, PaymentTypeNoCharge, PaymentTypePrepaidShared:
		return pt, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownPaymentType, id)
}

func (p PaymentType) IsPrepaid() bool {
	return p == PaymentTypePrepaid || p == PaymentTypePrepaidShared
}

func (p PaymentType) String() string {
	switch p {
	case PaymentTypePrepaid:
		return "prepaid"
	case PaymentTypeSubscription:
		return "subscription"
	case PaymentTypeInvoice:
		return "invoice"
	case PaymentTypeNoCharge:
		return "no_charge"
	case PaymentTypePrepaidShared:
		return "prepaid_shared"
	}
	return fmt.Sprintf("payment_type(%d)", int(p))
}
