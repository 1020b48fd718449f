package domain

import (
	"strings"

	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// PaymentMethodType is how the customer pays. It is informational: the
// amount check does not depend on it.
type PaymentMethodType string

const (
	PaymentMethodTypeCreditCard PaymentMethodType = "CREDIT_CARD"
	PaymentMethodTypeDebit      PaymentMethodType = "DEBIT_CARD"
	PaymentMethodTypeWallet     PaymentMethodType = "WALLET"
	PaymentMethodTypePayPal     PaymentMethodType = "PAYPAL"
)

var allPaymentMethodTypes = map[string]PaymentMethodType{
	PaymentMethodTypeCreditCard.String(): PaymentMethodTypeCreditCard,
	PaymentMethodTypeDebit.String():      PaymentMethodTypeDebit,
	PaymentMethodTypeWallet.String():     PaymentMethodTypeWallet,
	PaymentMethodTypePayPal.String():     PaymentMethodTypePayPal,
}

// ParsePaymentMethodType accepts any case. An empty value means credit card.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	if value == "" {
		return PaymentMethodTypeCreditCard, nil
	}
	if t, ok := allPaymentMethodTypes[strings.ToUpper(value)]; ok {
		return t, nil
	}
	return "", errors.Wrapf(models.ErrInvalidInput, "unknown payment method type %q", value)
}

func (pt PaymentMethodType) String() string {
	return string(pt)
}
