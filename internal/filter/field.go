package filter

import (
	"fmt"
	"strings"

	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
)

// Field names a usage attribute a rule may compare.
type Field string

const (
	FieldTransactionType   Field = "transaction_type"
	FieldTransactionStatus Field = "transaction_status"
	FieldDescription       Field = "description"
	FieldCost              Field = "cost"
	FieldSigningType       Field = "signing_type"
	FieldReceiverPID       Field = "receiver_pid"
	FieldBioPin            Field = "bio_pin"
	FieldPayer             Field = "payer"
)

// accessor reads a field; ok is false when the event does not carry it.
type accessor func(ev *usagedomain.UsageEvent) (Value, bool)

func text(s string) (Value, bool) {
	if strings.TrimSpace(s) == "" {
		return Value{}, false
	}
	return TextValue(s), true
}

var accessors = map[Field]accessor{
	FieldTransactionType: func(ev *usagedomain.UsageEvent) (Value, bool) { return text(ev.TransactionType) },
	FieldTransactionStatus: func(ev *usagedomain.UsageEvent) (Value, bool) {
		return TextValue(fmt.Sprintf("%d", ev.TransactionStatus)), true
	},
	FieldDescription: func(ev *usagedomain.UsageEvent) (Value, bool) { return text(ev.Description) },
	FieldCost: func(ev *usagedomain.UsageEvent) (Value, bool) {
		if !ev.Cost.Valid {
			return Value{}, false
		}
		return NumberValue(ev.Cost.Decimal), true
	},
	FieldSigningType: func(ev *usagedomain.UsageEvent) (Value, bool) { return text(ev.SigningType) },
	FieldReceiverPID: func(ev *usagedomain.UsageEvent) (Value, bool) { return text(ev.ReceiverPID) },
	FieldBioPin:      func(ev *usagedomain.UsageEvent) (Value, bool) { return BoolValue(ev.BioPin), true },
	FieldPayer:       func(ev *usagedomain.UsageEvent) (Value, bool) { return text(ev.Payer) },
}

func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := accessors[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

func (f Field) read(ev *usagedomain.UsageEvent) (Value, bool) {
	get, ok := accessors[f]
	if !ok || ev == nil {
		return Value{}, false
	}
	return get(ev)
}
