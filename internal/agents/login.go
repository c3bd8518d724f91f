// Login-day selection. Two policies exist: a fixed-ratio sampler (half the
// days, chosen without replacement) and a per-day cadence draw based on the
// profile's login period.
package agents

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// LoginPolicy selects how login days are chosen.
type LoginPolicy string

const (
	LoginSample  LoginPolicy = "sample"  // totalDays/2 distinct days
	LoginCadence LoginPolicy = "cadence" // 1-in-LoginPeriodDays chance per day
)

// ParseLoginPolicy validates a policy name. Empty means LoginSample.
func ParseLoginPolicy(s string) (LoginPolicy, error) {
	switch LoginPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoginSample:
		return LoginSample, nil
	case LoginCadence:
		return LoginCadence, nil
	}
	return "", fmt.Errorf("unknown login policy %q", s)
}

// SelectLoginDays records the calendar days, starting at start, on which the
// student is active during a run of totalDays days.
func (a *Actor) SelectLoginDays(start time.Time, totalDays int, policy LoginPolicy, rng *rand.Rand) {
	if totalDays <= 0 {
		return
	}

	var offsets []int
	switch policy {
	case LoginCadence:
		period := a.profile.LoginPeriodDays
		if period < 1 {
			period = 1
		}
		for day := 0; day < totalDays; day++ {
			if rng.Intn(period) == 0 {
				offsets = append(offsets, day)
			}
		}
	default:
		offsets = rng.Perm(totalDays)[:totalDays/2]
	}

	for _, off := range offsets {
		a.LoginDays[DayKey(start.AddDate(0, 0, off))] = struct{}{}
	}
}
