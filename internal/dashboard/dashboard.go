package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"ops-console-backend/internal/cache"
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
)

type KPI struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Delta string `json:"delta"`
	Tone  string `json:"tone"`
}

type TypeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StatusSplit struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type OperatorStat struct {
	Label   string  `json:"label"`
	Value   string  `json:"value"`
	Percent float64 `json:"percent"`
}

// Update is one entry of the recent-changes feed.
type Update struct {
	Title  string       `json:"title"`
	Status model.Status `json:"status"`
	Time   string       `json:"time"`
	At     time.Time    `json:"at"`
}

// Data is the dashboard aggregate.
type Data struct {
	KPIs            []KPI          `json:"kpis"`
	EquipmentByType []TypeCount    `json:"equipment_by_type"`
	EquipmentStatus StatusSplit    `json:"equipment_status"`
	OperatorStats   []OperatorStat `json:"operator_stats"`
	LatestUpdates   []Update       `json:"latest_updates"`
}

// Lister is a cached list of one kind.
type Lister[T any] interface {
	List(ctx context.Context) ([]T, error)
}

// Service serves the dashboard from the tag cache.
type Service struct {
	reader *cache.Reader[Data]
	now    func() time.Time
}

// New builds the dashboard over the three lists it summarizes. The cached
// entry lives under resource.TagDashboard.
func New(tags *cache.Tags, equipment Lister[model.Equipment], operators Lister[model.Operator], types Lister[model.EquipmentType], log *zap.Logger) *Service {
	s := &Service{now: time.Now}
	s.reader = cache.NewReader(tags, resource.TagDashboard, func(ctx context.Context) (Data, error) {
		eq, err := equipment.List(ctx)
		if err != nil {
			return Data{}, fmt.Errorf("dashboard equipment: %w", err)
		}
		ops, err := operators.List(ctx)
		if err != nil {
			return Data{}, fmt.Errorf("dashboard operators: %w", err)
		}
		ts, err := types.List(ctx)
		if err != nil {
			return Data{}, fmt.Errorf("dashboard equipment types: %w", err)
		}
		return Build(eq, ops, ts, s.now()), nil
	}, log)
	return s
}

// Get returns the dashboard. Relative times are recomputed on every read.
func (s *Service) Get(ctx context.Context) (Data, error) {
	d, err := s.reader.Get(ctx)
	if err != nil {
		return Data{}, err
	}
	now := s.now()
	for i := range d.LatestUpdates {
		d.LatestUpdates[i].Time = Ago(now, d.LatestUpdates[i].At)
	}
	return d, nil
}

// Build computes the aggregate from the current lists.
func Build(equipment []model.Equipment, operators []model.Operator, types []model.EquipmentType, now time.Time) Data {
	activeEq := 0
	for _, e := range equipment {
		if e.Status == model.StatusActive {
			activeEq++
		}
	}
	activeOps := 0
	for _, o := range operators {
		if o.Status == model.StatusActive {
			activeOps++
		}
	}
	totalEq, totalOps := len(equipment), len(operators)

	byType := make([]TypeCount, 0, len(types))
	for _, t := range types {
		n := 0
		for _, e := range equipment {
			if e.TypeID != nil && *e.TypeID == t.ID {
				n++
			}
		}
		byType = append(byType, TypeCount{Name: t.Name, Count: n})
	}

	return Data{
		KPIs: []KPI{
			{Title: "Total Equipment", Value: fmt.Sprint(totalEq), Tone: "info"},
			{Title: "Active Equipment", Value: fmt.Sprint(activeEq), Delta: percentLabel(activeEq, totalEq), Tone: "success"},
			{Title: "Total Operators", Value: fmt.Sprint(totalOps), Tone: "info"},
			{Title: "Active Operators", Value: fmt.Sprint(activeOps), Delta: percentLabel(activeOps, totalOps), Tone: "success"},
		},
		EquipmentByType: byType,
		EquipmentStatus: StatusSplit{Active: activeEq, Inactive: totalEq - activeEq},
		OperatorStats: []OperatorStat{
			{Label: "Active Operators", Value: fmt.Sprint(activeOps), Percent: percent(activeOps, totalOps)},
			{Label: "Inactive Operators", Value: fmt.Sprint(totalOps - activeOps), Percent: percent(totalOps-activeOps, totalOps)},
			{Label: "Total Operators", Value: fmt.Sprint(totalOps), Percent: 100},
		},
		LatestUpdates: latest(equipment, operators, now, 3),
	}
}

func latest(equipment []model.Equipment, operators []model.Operator, now time.Time, n int) []Update {
	updates := make([]Update, 0, len(equipment)+len(operators))
	for _, e := range equipment {
		updates = append(updates, Update{
			Title:  fmt.Sprintf("Equipment %s updated", e.Tag),
			Status: e.Status,
			At:     e.UpdatedAt,
		})
	}
	for _, o := range operators {
		updates = append(updates, Update{
			Title:  fmt.Sprintf("Operator %s updated", o.Name),
			Status: o.Status,
			At:     o.UpdatedAt,
		})
	}
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].At.After(updates[j].At) })
	if len(updates) > n {
		updates = updates[:n]
	}
	for i := range updates {
		updates[i].Time = Ago(now, updates[i].At)
	}
	return updates
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func percentLabel(part, total int) string {
	return fmt.Sprintf("%.0f%%", math.Round(percent(part, total)))
}

// Ago renders the age of t as "há Nh" below a day and "há Nd" above.
func Ago(now, t time.Time) string {
	hours := int(now.Sub(t).Hours())
	if hours < 24 {
		return fmt.Sprintf("há %dh", hours)
	}
	return fmt.Sprintf("há %dd", hours/24)
}
