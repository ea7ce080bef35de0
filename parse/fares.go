package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

type FareAttribute struct {
	ID            string  `csv:"fare_id"`
	Price         float64 `csv:"price"`
	CurrencyType  string  `csv:"currency_type"`
	PaymentMethod int8    `csv:"payment_method"`
	Transfers     string  `csv:"transfers"`
}

type FareRule struct {
	FareID        string `csv:"fare_id"`
	RouteID       string `csv:"route_id"`
	OriginID      string `csv:"origin_id"`
	DestinationID string `csv:"destination_id"`
}

// Zone is a row of farezone_attributes.txt, an agency extension
// table naming each fare zone.
type Zone struct {
	ID   string `csv:"zone_id"`
	Name string `csv:"zone_name"`
}

func ParseFareAttributes(data io.Reader) ([]FareAttribute, error) {
	fareCsv := []*FareAttribute{}
	if err := gocsv.Unmarshal(data, &fareCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling fare_attributes csv: %w", err)
	}

	seen := map[string]bool{}
	fares := make([]FareAttribute, 0, len(fareCsv))
	for _, fa := range fareCsv {
		if fa.ID == "" {
			return nil, fmt.Errorf("empty fare_id")
		}
		if seen[fa.ID] {
			return nil, fmt.Errorf("repeated fare_id '%s'", fa.ID)
		}
		seen[fa.ID] = true

		if fa.Price < 0 {
			return nil, fmt.Errorf("negative price for fare_id '%s'", fa.ID)
		}

		fares = append(fares, *fa)
	}

	return fares, nil
}

func ParseFareRules(data io.Reader, fares map[string]bool) ([]FareRule, error) {
	ruleCsv := []*FareRule{}
	if err := gocsv.Unmarshal(data, &ruleCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling fare_rules csv: %w", err)
	}

	rules := make([]FareRule, 0, len(ruleCsv))
	for _, r := range ruleCsv {
		if r.FareID == "" {
			return nil, fmt.Errorf("fare rule has no fare_id")
		}
		if !fares[r.FareID] {
			return nil, fmt.Errorf("unknown fare_id '%s'", r.FareID)
		}

		rules = append(rules, *r)
	}

	return rules, nil
}

func ParseZones(data io.Reader) ([]Zone, error) {
	zoneCsv := []*Zone{}
	if err := gocsv.Unmarshal(data, &zoneCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling farezone_attributes csv: %w", err)
	}

	seen := map[string]bool{}
	zones := make([]Zone, 0, len(zoneCsv))
	for _, z := range zoneCsv {
		if z.ID == "" {
			return nil, fmt.Errorf("empty zone_id")
		}
		if seen[z.ID] {
			return nil, fmt.Errorf("repeated zone_id '%s'", z.ID)
		}
		seen[z.ID] = true

		zones = append(zones, *z)
	}

	return zones, nil
}
