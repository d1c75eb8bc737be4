package dispatch

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/villaops/dispatchd/core/model"
)

// Scorer computes a weighted urgency and impact score for jobs. It is
// pure and deterministic: the same inputs always produce the same
// score, so dashboard orderings are stable between refreshes.
type Scorer struct {
	TimeWeight       float64
	RevenueWeight    float64
	GuestWeight      float64
	DependencyWeight float64
	ResourceWeight   float64

	// VIPThreshold is the booking value above which a guest is
	// treated as VIP for the guest impact factor.
	VIPThreshold float64
}

// NewScorer returns a Scorer with the standard factor weights.
func NewScorer() Scorer {
	return Scorer{
		TimeWeight:       0.30,
		RevenueWeight:    0.25,
		GuestWeight:      0.20,
		DependencyWeight: 0.15,
		ResourceWeight:   0.10,
		VIPThreshold:     5000,
	}
}

// ScoreResult carries the composite score plus the per-factor breakdown
// used by dashboard views.
type ScoreResult struct {
	JobID     string             `json:"job_id"`
	Score     float64            `json:"score"`
	Factors   map[string]float64 `json:"factors"`
	Reasoning []string           `json:"reasoning"`
}

// Score computes the priority score of job relative to the rest of the
// portfolio. allJobs provides the context for the revenue and
// dependency factors.
func (s Scorer) Score(job model.Job, allJobs []model.Job, now time.Time) ScoreResult {
	res := ScoreResult{
		JobID:   job.ID,
		Factors: make(map[string]float64, 5),
	}

	timeScore, timeReasons := s.timeUrgency(job, now)
	revScore, revReasons := s.revenueImpact(job, allJobs)
	guestScore, guestReasons := s.guestImpact(job, now)
	depScore, depReasons := s.dependencyImpact(job, allJobs)
	resScore, resReasons := s.resourceAvailability(job, allJobs)

	res.Factors["time_urgency"] = timeScore
	res.Factors["revenue_impact"] = revScore
	res.Factors["guest_impact"] = guestScore
	res.Factors["dependency_impact"] = depScore
	res.Factors["resource_availability"] = resScore

	res.Score = math.Round((timeScore*s.TimeWeight+
		revScore*s.RevenueWeight+
		guestScore*s.GuestWeight+
		depScore*s.DependencyWeight+
		resScore*s.ResourceWeight)*100) / 100

	res.Reasoning = append(res.Reasoning, timeReasons...)
	res.Reasoning = append(res.Reasoning, revReasons...)
	res.Reasoning = append(res.Reasoning, guestReasons...)
	res.Reasoning = append(res.Reasoning, depReasons...)
	res.Reasoning = append(res.Reasoning, resReasons...)
	return res
}

// PrioritizeJobs scores every job and returns the results sorted by
// descending score. The sort is stable so equal scores keep input order.
func (s Scorer) PrioritizeJobs(jobs []model.Job, now time.Time) []ScoreResult {
	results := make([]ScoreResult, 0, len(jobs))
	for _, j := range jobs {
		results = append(results, s.Score(j, jobs, now))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (s Scorer) timeUrgency(job model.Job, now time.Time) (float64, []string) {
	var reasons []string
	score := 10.0
	switch job.Priority {
	case model.PriorityUrgent:
		score = 50
		reasons = append(reasons, "urgent priority tier")
	case model.PriorityHigh:
		score = 35
	case model.PriorityMedium:
		score = 20
	}

	deadline := job.Deadline
	if deadline == nil && !job.ScheduledStart.IsZero() {
		deadline = &job.ScheduledStart
	}
	if deadline != nil {
		until := deadline.Sub(now)
		switch {
		case until < 0:
			score += 100
			reasons = append(reasons, "past deadline")
		case until <= time.Hour:
			score += 80
			reasons = append(reasons, "deadline within 1 hour")
		case until <= 2*time.Hour:
			score += 60
			reasons = append(reasons, "deadline within 2 hours")
		case until <= 4*time.Hour:
			score += 40
			reasons = append(reasons, "deadline within 4 hours")
		case until <= 8*time.Hour:
			score += 20
			reasons = append(reasons, "deadline within 8 hours")
		}
	}
	return clamp(score), reasons
}

func (s Scorer) revenueImpact(job model.Job, allJobs []model.Job) (float64, []string) {
	var reasons []string
	score := 30.0

	// Rank the booking value against the portfolio so a mid-season
	// booking does not look cheap next to one outlier villa.
	values := make([]float64, 0, len(allJobs))
	for _, j := range allJobs {
		if j.BookingValue > 0 {
			values = append(values, j.BookingValue)
		}
	}
	if job.BookingValue > 0 && len(values) >= 2 {
		mean, std := stat.MeanStdDev(values, nil)
		if std > 0 {
			z := (job.BookingValue - mean) / std
			score += clamp(50 + z*20) * 0.6
			if z >= 1 {
				reasons = append(reasons, fmt.Sprintf("booking value well above portfolio average (%.0f)", job.BookingValue))
			}
		} else if job.BookingValue >= mean {
			score += 30
		}
	} else if job.BookingValue >= s.VIPThreshold {
		score += 40
		reasons = append(reasons, "high-value booking")
	}

	switch job.Type {
	case model.JobCleaning:
		score += 15
	case model.JobMaintenance:
		score += 10
	case model.JobInspection:
		score += 5
	}
	if job.RepeatGuest {
		score += 10
		reasons = append(reasons, "repeat guest booking")
	}
	return clamp(score), reasons
}

func (s Scorer) guestImpact(job model.Job, now time.Time) (float64, []string) {
	var reasons []string
	score := 20.0
	if job.BookingValue >= s.VIPThreshold {
		score += 30
		reasons = append(reasons, "VIP guest")
	}
	if job.GuestArrival != nil {
		until := job.GuestArrival.Sub(now)
		switch {
		case until >= 0 && until <= 6*time.Hour:
			score += 50
			reasons = append(reasons, "guest arriving within 6 hours")
		case until >= 0 && until <= 24*time.Hour:
			score += 30
			reasons = append(reasons, "guest arriving within 24 hours")
		}
	}
	if job.GuestDeparture != nil {
		until := job.GuestDeparture.Sub(now)
		if until >= 0 && until <= 24*time.Hour {
			score += 20
			reasons = append(reasons, "guest departing within 24 hours")
		}
	}
	if len(job.SpecialInstructions) > 100 {
		score += 10
		reasons = append(reasons, "complex special instructions")
	}
	return clamp(score), reasons
}

func (s Scorer) dependencyImpact(job model.Job, allJobs []model.Job) (float64, []string) {
	var reasons []string
	score := 10.0
	if job.Blocking() {
		score += 25
	}
	downstream := 0
	for _, other := range allJobs {
		if other.ID == job.ID || other.PropertyID != job.PropertyID {
			continue
		}
		if other.Status.Terminal() {
			continue
		}
		if other.ScheduledStart.After(job.ScheduledStart) {
			downstream++
		}
	}
	if downstream > 4 {
		downstream = 4
	}
	score += float64(downstream) * 15
	if downstream > 0 {
		reasons = append(reasons, fmt.Sprintf("%d later job(s) on the same property depend on this one", downstream))
	}
	return clamp(score), reasons
}

func (s Scorer) resourceAvailability(job model.Job, allJobs []model.Job) (float64, []string) {
	var reasons []string
	score := 100.0
	if job.AssignedStaffID != "" {
		open := 0
		for _, other := range allJobs {
			if other.AssignedStaffID == job.AssignedStaffID && !other.Status.Terminal() {
				open++
			}
		}
		score -= float64(open) * 15
		if open > 3 {
			reasons = append(reasons, "assigned staff member is heavily loaded")
		}
	}
	if len(job.RequiredSkills) > 0 {
		score -= 20
		reasons = append(reasons, "requires specialized skills")
	}
	return clamp(score), reasons
}
