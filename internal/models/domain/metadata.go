package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Metadata is the contest-type specific part of a submission.
type Metadata interface {
	ContestType() ContestType
	Validate() error
}

type LivestockMetadata struct {
	Breed     string  `json:"breed"`
	Sex       string  `json:"sex,omitempty"`
	AgeMonths int     `json:"ageMonths"`
	WeightKg  float64 `json:"weightKg"`
	HeightCm  float64 `json:"heightCm,omitempty"`
}

func (LivestockMetadata) ContestType() ContestType { return ContestLivestock }

func (m LivestockMetadata) Validate() error {
	if strings.TrimSpace(m.Breed) == "" {
		return Errorf(KindValidation, "breed is required")
	}
	if m.AgeMonths < 0 {
		return Errorf(KindValidation, "age must not be negative")
	}
	if m.WeightKg < 0 || m.HeightCm < 0 {
		return Errorf(KindValidation, "weight and height must not be negative")
	}
	switch m.Sex {
	case "", "MALE", "FEMALE":
	default:
		return Errorf(KindValidation, "sex must be MALE or FEMALE")
	}
	return nil
}

type CoffeeMetadata struct {
	Variety     string     `json:"variety"`
	Process     string     `json:"process"`
	AltitudeM   int        `json:"altitude"`
	HarvestDate *time.Time `json:"harvestDate,omitempty"`
}

func (CoffeeMetadata) ContestType() ContestType { return ContestCoffeeProducts }

func (m CoffeeMetadata) Validate() error {
	if strings.TrimSpace(m.Variety) == "" {
		return Errorf(KindValidation, "variety is required")
	}
	if m.AltitudeM < 0 {
		return Errorf(KindValidation, "altitude must not be negative")
	}
	return nil
}

type GeneralProductMetadata struct {
	ProductType    string     `json:"productType"`
	Ingredients    []string   `json:"ingredients,omitempty"`
	WeightGrams    float64    `json:"weightGrams,omitempty"`
	ProductionDate *time.Time `json:"productionDate,omitempty"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	Certifications []string   `json:"certifications,omitempty"`
}

func (GeneralProductMetadata) ContestType() ContestType { return ContestGeneralProducts }

func (m GeneralProductMetadata) Validate() error {
	if m.WeightGrams < 0 {
		return Errorf(KindValidation, "weight must not be negative")
	}
	if m.ProductionDate != nil && m.ExpiryDate != nil && m.ExpiryDate.Before(*m.ProductionDate) {
		return Errorf(KindValidation, "expiry date is before production date")
	}
	return nil
}

// DecodeMetadata parses raw JSON into the variant for the contest type and validates it.
// Empty input yields nil metadata.
func DecodeMetadata(ct ContestType, raw []byte) (Metadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var m Metadata
	switch ct {
	case ContestLivestock:
		var v LivestockMetadata
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	case ContestCoffeeProducts:
		var v CoffeeMetadata
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	case ContestGeneralProducts:
		var v GeneralProductMetadata
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		m = v
	default:
		return nil, Errorf(KindValidation, "unknown contest type %q", ct)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMetadata is the storage form of metadata; nil encodes to nil.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return Errorf(KindValidation, "invalid metadata: %s", err.Error())
	}
	return nil
}

// Fits checks metadata against a category's filters.
func (f CategoryFilters) Fits(m Metadata) error {
	switch v := m.(type) {
	case LivestockMetadata:
		if f.MinAgeMonths != nil && v.AgeMonths < *f.MinAgeMonths {
			return Errorf(KindValidation, "animal is younger than the category minimum of %d months", *f.MinAgeMonths)
		}
		if f.MaxAgeMonths != nil && v.AgeMonths > *f.MaxAgeMonths {
			return Errorf(KindValidation, "animal is older than the category maximum of %d months", *f.MaxAgeMonths)
		}
		if f.Sex != nil && !strings.EqualFold(*f.Sex, v.Sex) {
			return Errorf(KindValidation, "category only accepts sex %s", *f.Sex)
		}
		return f.fitsWeight(v.WeightKg)
	case GeneralProductMetadata:
		if f.ProductType != nil && !strings.EqualFold(*f.ProductType, v.ProductType) {
			return Errorf(KindValidation, "category only accepts product type %s", *f.ProductType)
		}
		return f.fitsWeight(v.WeightGrams)
	}
	return nil
}

func (f CategoryFilters) fitsWeight(w float64) error {
	if f.MinWeight != nil && w < *f.MinWeight {
		return Errorf(KindValidation, "weight is below the category minimum of %s", formatFloat(*f.MinWeight))
	}
	if f.MaxWeight != nil && w > *f.MaxWeight {
		return Errorf(KindValidation, "weight is above the category maximum of %s", formatFloat(*f.MaxWeight))
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
