package staff

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestEligibleFiltersRoleAndActive(t *testing.T) {
	r := NewRoster()
	r.Add(Member{ID: "hk1", Role: "housekeeper", Active: true})
	r.Add(Member{ID: "hk2", Role: "housekeeper", Active: true})
	r.Add(Member{ID: "inactive", Role: "housekeeper", Active: false})
	r.Add(Member{ID: "gardener", Role: "gardener", Active: true})

	start := time.Now()
	ids, err := r.Eligible(context.Background(), "housekeeper", start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"hk1", "hk2"}) {
		t.Errorf("eligible = %v, want [hk1 hk2]", ids)
	}
}

func TestEligibleHonorsAvailabilityWindows(t *testing.T) {
	r := NewRoster()
	r.Add(Member{ID: "windowed", Role: "housekeeper", Active: true})
	r.Add(Member{ID: "always", Role: "housekeeper", Active: true})

	now := time.Now()
	r.SetAvailability("windowed", []AvailabilityWindow{
		{Start: now, End: now.Add(4 * time.Hour)},
	})

	inWindow, err := r.Eligible(context.Background(), "housekeeper", now.Add(time.Hour), now.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if !reflect.DeepEqual(inWindow, []string{"always", "windowed"}) {
		t.Errorf("in-window eligible = %v, want both", inWindow)
	}

	outOfWindow, err := r.Eligible(context.Background(), "housekeeper", now.Add(5*time.Hour), now.Add(7*time.Hour))
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if !reflect.DeepEqual(outOfWindow, []string{"always"}) {
		t.Errorf("out-of-window eligible = %v, want [always]", outOfWindow)
	}
}

func TestMemberLookup(t *testing.T) {
	r := NewRoster()
	r.Add(Member{ID: "hk1", Name: "Ana", Role: "housekeeper", Active: true})

	m, ok := r.Member(context.Background(), "hk1")
	if !ok || m.Name != "Ana" {
		t.Errorf("Member = %+v, %v; want Ana, true", m, ok)
	}
	if _, ok := r.Member(context.Background(), "missing"); ok {
		t.Errorf("unknown member reported as present")
	}
}
