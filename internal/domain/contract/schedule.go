package contract

import "fmt"

// ShapeRules stores the league's pro-rating constraints. The band multiplier
// is kept as a rational (numerator/denominator) so all checks stay in exact
// integer arithmetic: cap math must never drift.
type ShapeRules struct {
	BandNumerator      int
	BandDenominator    int
	MinProRateDuration int
	MaxDuration        int
}

func DefaultShapeRules() ShapeRules {
	return ShapeRules{
		BandNumerator:      3,
		BandDenominator:    2,
		MinProRateDuration: 3,
		MaxDuration:        5,
	}
}

// BuildSchedule splits total evenly across duration seasons, placing the
// remainder on the later years one unit at a time, so a 10/3 contract pays
// 3-3-4 rather than 4-3-3.
func BuildSchedule(total int64, duration int, rules ShapeRules) ([]int64, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total value must be greater than zero")
	}
	if duration < 1 || duration > rules.MaxDuration {
		return nil, fmt.Errorf("duration must be between 1 and %d seasons", rules.MaxDuration)
	}

	base := total / int64(duration)
	remainder := int(total % int64(duration))

	out := make([]int64, duration)
	for i := range out {
		out[i] = base
		if i >= duration-remainder {
			out[i]++
		}
	}

	return out, nil
}

// ValidateShape checks an explicit per-year schedule against the league's
// geometric constraints. Schedules shorter than MinProRateDuration only need
// to be non-negative and sum to the total. Longer schedules must additionally
// be monotonic in one direction and keep the designated middle value inside
// the band relative to both endpoints.
func ValidateShape(payments []int64, total int64, rules ShapeRules) error {
	if len(payments) < 1 || len(payments) > rules.MaxDuration {
		return fmt.Errorf("%w: schedule must cover 1 to %d seasons, got %d", ErrInvalidProRateShape, rules.MaxDuration, len(payments))
	}

	var sum int64
	for i, p := range payments {
		if p < 0 {
			return fmt.Errorf("%w: year %d payment is negative", ErrInvalidProRateShape, i+1)
		}
		sum += p
	}
	if sum != total {
		return fmt.Errorf("%w: payments sum %d does not equal total value %d", ErrInvalidProRateShape, sum, total)
	}

	if len(payments) < rules.MinProRateDuration {
		return nil
	}

	if err := validateMonotonic(payments); err != nil {
		return err
	}

	return validateBand(payments, rules)
}

func validateMonotonic(payments []int64) error {
	direction := 0
	for i := 1; i < len(payments); i++ {
		switch {
		case payments[i] > payments[i-1]:
			if direction < 0 {
				return fmt.Errorf("%w: year %d rises after an earlier decline", ErrInvalidProRateShape, i+1)
			}
			direction = 1
		case payments[i] < payments[i-1]:
			if direction > 0 {
				return fmt.Errorf("%w: year %d declines after an earlier rise", ErrInvalidProRateShape, i+1)
			}
			direction = -1
		}
	}
	return nil
}

// validateBand enforces the middle-value band: the designated middle (year 2
// for 3-year deals, the mean of years 2-3 for 4-year deals, year 3 for
// 5-year deals) and the larger endpoint must each stay within the band
// multiplier of the other. The middle is carried as num/den to keep the
// 4-year average exact.
func validateBand(payments []int64, rules ShapeRules) error {
	var middleNum, middleDen int64
	switch len(payments) {
	case 3:
		middleNum, middleDen = payments[1], 1
	case 4:
		middleNum, middleDen = payments[1]+payments[2], 2
	case 5:
		middleNum, middleDen = payments[2], 1
	default:
		return nil
	}

	endpoint := payments[0]
	if last := payments[len(payments)-1]; last > endpoint {
		endpoint = last
	}

	num := int64(rules.BandNumerator)
	den := int64(rules.BandDenominator)

	// endpoint <= (num/den) * middle
	if endpoint*den*middleDen > num*middleNum {
		return fmt.Errorf("%w: endpoint %d exceeds %d/%d of the middle value", ErrInvalidProRateShape, endpoint, rules.BandNumerator, rules.BandDenominator)
	}
	// middle <= (num/den) * endpoint
	if middleNum*den > num*endpoint*middleDen {
		return fmt.Errorf("%w: middle value exceeds %d/%d of endpoint %d", ErrInvalidProRateShape, rules.BandNumerator, rules.BandDenominator, endpoint)
	}

	return nil
}
