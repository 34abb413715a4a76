package checkout

import "github.com/angelmondragon/pixcheckout-backend/pkg/enums"

// Step is the position of a buyer in the checkout form.
type Step int

const (
	StepDataEntry    Step = 0
	StepDeliveryInfo Step = 1
)

// maxStep is the Payment step index for a fields mode. Modes without a
// delivery step go straight from data entry to payment.
func maxStep(mode enums.FieldsMode) Step {
	if mode.HasDeliveryStep() {
		return 2
	}
	return 1
}

func (s Step) name(mode enums.FieldsMode) string {
	switch {
	case s == StepDataEntry:
		return "data_entry"
	case s >= maxStep(mode):
		return "payment"
	default:
		return "delivery_info"
	}
}
