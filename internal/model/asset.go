// Package model defines domain types for finburn asset records and reports.
package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// UnknownName labels a card whose name element could not be found.
const UnknownName = "未知服务器"

// Cycle is the recurrence period a recognized price applies to.
type Cycle string

const (
	CycleMonth Cycle = "month"
	CycleYear  Cycle = "year"
)

// Months returns how many months one billing cycle spans.
func (c Cycle) Months() float64 {
	if c == CycleYear {
		return 12
	}
	return 1
}

// DaysPerCycle is the day count used to derive a daily rate for the cycle.
func (c Cycle) DaysPerCycle() float64 {
	if c == CycleYear {
		return 365
	}
	return 30
}

// Days is a remaining-validity duration in days. Permanent is +Inf.
type Days float64

// Permanent marks validity that never runs out.
var Permanent = Days(math.Inf(1))

// IsPermanent reports whether d is the infinite validity.
func (d Days) IsPermanent() bool {
	return math.IsInf(float64(d), 1)
}

func (d Days) String() string {
	if d.IsPermanent() {
		return "permanent"
	}
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

// MarshalJSON encodes permanent validity as the string "permanent"
// since JSON has no infinity.
func (d Days) MarshalJSON() ([]byte, error) {
	if d.IsPermanent() {
		return []byte(`"permanent"`), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON accepts either a number or "permanent".
func (d *Days) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "permanent" {
			*d = Permanent
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*d = Days(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = Days(f)
	return nil
}

// AssetRecord is one billing entity inferred from a server card.
// Records are value objects: every pipeline run builds a fresh slice.
type AssetRecord struct {
	Name   string
	IsFree bool

	// As written on the page; zero/empty when IsFree.
	OriginalAmount float64
	OriginalSymbol string
	Cycle          Cycle
	IsOneTime      bool

	// Base currency figures; zero when IsFree.
	MonthlyCostBase    float64
	TotalCostBase      float64
	RemainingValueBase float64

	RemainingDays Days
	SourceOrder   int
}
