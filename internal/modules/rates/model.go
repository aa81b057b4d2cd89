// README: Rate snapshot handed to one billing request.
package rates

import (
	"errors"

	"garage/internal/modules/billing"
)

var ErrNotFound = errors.New("rate configuration not found")

// Snapshot is read once per billing request and never mutated afterwards.
type Snapshot struct {
	Tariff        *billing.Tariff
	PricingConfig *billing.DynamicPricingConfig
	Discount      *billing.DiscountInfo
}
