// README: Offline quote tool; prices one session from flags and the env billing policy, prints JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"garage/internal/config"
	"garage/internal/modules/billing"
	"garage/internal/modules/checkout"
	"garage/internal/modules/rates"
)

type Flags struct {
	Entry      string
	Exit       string
	Zone       string
	User       string
	Rate       string
	DailyCap   string
	Overnight  string
	Surcharge  string
	PeakMult   float64
	OccThresh  float64
	OccMult    float64
	Occupancy  float64
	SubPct     string
	PromoPct   string
	PromoFixed string
	FreeHours  string
	LostTicket bool
	Misuse     bool
}

func main() {
	f := parseFlags(os.Args[1:])
	out, err := quote(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "garage-quote:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func parseFlags(args []string) Flags {
	var f Flags
	fs := flag.NewFlagSet("garage-quote", flag.ExitOnError)
	fs.StringVar(&f.Entry, "entry", "", "entry time, RFC3339")
	fs.StringVar(&f.Exit, "exit", "", "exit time, RFC3339")
	fs.StringVar(&f.Zone, "zone", string(billing.ZoneStandard), "zone type")
	fs.StringVar(&f.User, "user", "cli", "user id")
	fs.StringVar(&f.Rate, "rate", "5", "base hourly rate")
	fs.StringVar(&f.DailyCap, "cap", "30", "daily cap, 0 disables")
	fs.StringVar(&f.Overnight, "overnight-flat", "", "overnight flat rate per day; empty disables")
	fs.StringVar(&f.Surcharge, "surcharge", "", "weekend/holiday surcharge percent")
	fs.Float64Var(&f.PeakMult, "peak", 1.5, "peak-hour multiplier")
	fs.Float64Var(&f.OccThresh, "occ-threshold", 0.85, "high-occupancy threshold")
	fs.Float64Var(&f.OccMult, "occ-mult", 1.2, "high-occupancy multiplier")
	fs.Float64Var(&f.Occupancy, "occupancy", 0, "current occupancy ratio")
	fs.StringVar(&f.SubPct, "sub", "", "subscription discount, fraction of 1")
	fs.StringVar(&f.PromoPct, "promo", "", "promo discount, fraction of 1")
	fs.StringVar(&f.PromoFixed, "promo-fixed", "", "fixed promo amount")
	fs.StringVar(&f.FreeHours, "free-hours", "", "free hours per day (subscription)")
	fs.BoolVar(&f.LostTicket, "lost-ticket", false, "charge the lost ticket fee")
	fs.BoolVar(&f.Misuse, "misuse", false, "charge the zone misuse fee")
	_ = fs.Parse(args)
	return f
}

type output struct {
	DayType        billing.DayType       `json:"day_type"`
	Band           billing.TimeOfDayBand `json:"band"`
	OccupancyRatio float64               `json:"occupancy_ratio"`
	Bill           billing.BillingResult `json:"bill"`
}

func quote(f Flags) (output, error) {
	var bc config.BillingConfig
	if err := cleanenv.ReadEnv(&bc); err != nil {
		return output{}, fmt.Errorf("read env: %w", err)
	}
	policy, err := bc.Policy()
	if err != nil {
		return output{}, err
	}

	entry, err := time.Parse(time.RFC3339, f.Entry)
	if err != nil {
		return output{}, fmt.Errorf("-entry: %w", err)
	}
	exit, err := time.Parse(time.RFC3339, f.Exit)
	if err != nil {
		return output{}, fmt.Errorf("-exit: %w", err)
	}

	snap, err := snapshot(f)
	if err != nil {
		return output{}, err
	}
	svc := checkout.NewService(staticRates{snap}, fixedOccupancy(f.Occupancy), nil, policy, zap.NewNop())
	q, err := svc.Quote(context.Background(), checkout.QuoteCommand{
		UserID:     f.User,
		ZoneType:   billing.ZoneType(f.Zone),
		EntryTime:  entry,
		ExitTime:   exit,
		LostTicket: f.LostTicket,
		ZoneMisuse: f.Misuse,
	})
	if err != nil {
		return output{}, err
	}
	return output{DayType: q.DayType, Band: q.Band, OccupancyRatio: q.OccupancyRatio, Bill: q.Result}, nil
}

func snapshot(f Flags) (rates.Snapshot, error) {
	var rate, dailyCap, overnight, surcharge, sub, promo, fixed, free decimal.NullDecimal
	for name, v := range map[string]struct {
		raw string
		dst *decimal.NullDecimal
	}{
		"-rate":           {f.Rate, &rate},
		"-cap":            {f.DailyCap, &dailyCap},
		"-overnight-flat": {f.Overnight, &overnight},
		"-surcharge":      {f.Surcharge, &surcharge},
		"-sub":            {f.SubPct, &sub},
		"-promo":          {f.PromoPct, &promo},
		"-promo-fixed":    {f.PromoFixed, &fixed},
		"-free-hours":     {f.FreeHours, &free},
	} {
		if v.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(v.raw)
		if err != nil {
			return rates.Snapshot{}, fmt.Errorf("%s %q: %w", name, v.raw, err)
		}
		*v.dst = decimal.NewNullDecimal(d)
	}

	tariff, err := billing.NewTariff(billing.TariffParams{
		ZoneType:                         billing.ZoneType(f.Zone),
		BaseHourlyRate:                   rate.Decimal,
		DailyCap:                         dailyCap.Decimal,
		OvernightFlatRateEnabled:         overnight.Valid,
		OvernightFlatRate:                overnight,
		WeekendOrHolidaySurchargePercent: surcharge,
	})
	if err != nil {
		return rates.Snapshot{}, err
	}
	cfg, err := billing.NewDynamicPricingConfig(f.PeakMult, f.OccThresh, f.OccMult)
	if err != nil {
		return rates.Snapshot{}, err
	}
	discount, err := billing.NewDiscountInfo(billing.DiscountParams{
		SubscriptionDiscountPercent: sub,
		PromoDiscountPercent:        promo,
		PromoDiscountFixed:          fixed,
		SubscriptionHasFreeHours:    free.Valid,
		FreeHoursPerDay:             free,
	})
	if err != nil {
		return rates.Snapshot{}, err
	}
	return rates.Snapshot{Tariff: tariff, PricingConfig: cfg, Discount: discount}, nil
}

type staticRates struct {
	snap rates.Snapshot
}

func (s staticRates) Snapshot(context.Context, billing.ZoneType, string) (rates.Snapshot, error) {
	return s.snap, nil
}

type fixedOccupancy float64

func (o fixedOccupancy) Ratio(context.Context, billing.ZoneType) (float64, error) {
	return float64(o), nil
}
