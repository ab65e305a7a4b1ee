package domain

type PaymentMethod string

const (
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCard        PaymentMethod = "card"
	PaymentCash        PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMobileMoney, PaymentCard, PaymentCash:
		return true
	}
	return false
}
