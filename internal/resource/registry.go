package resource

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ops-console-backend/internal/cache"
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
)

// Registry holds one service per entity kind.
type Registry struct {
	Equipment      *Service[model.Equipment]
	EquipmentTypes *Service[model.EquipmentType]
	MaterialTypes  *Service[model.MaterialType]
	Operators      *Service[model.Operator]
	Releases       *Service[model.Release]

	negotiators []negotiator
}

type negotiator interface {
	Kind() string
	NegotiateOrdering() bool
}

// NewRegistry builds gateways and services for every kind over db and tags.
func NewRegistry(db *gorm.DB, tags *cache.Tags, log *zap.Logger) *Registry {
	r := &Registry{}
	r.Equipment = build(r, Equipment, db, tags, log)
	r.EquipmentTypes = build(r, EquipmentType, db, tags, log)
	r.MaterialTypes = build(r, MaterialType, db, tags, log)
	r.Operators = build(r, Operator, db, tags, log)
	r.Releases = build(r, Release, db, tags, log)

	tags.DependOn(TagDashboard, TagEquipment, TagEquipmentTypes, TagOperators)
	return r
}

func build[T any](r *Registry, def *Definition[T], db *gorm.DB, tags *cache.Tags, log *zap.Logger) *Service[T] {
	table := store.NewTable(db, def.Kind, log, def.Gateway...)
	r.negotiators = append(r.negotiators, table)
	return NewService(def, table, tags, log)
}

// NegotiateOrdering checks every sequence-ordered table once. It returns the
// kinds that fell back to creation order.
func (r *Registry) NegotiateOrdering() []string {
	var fallback []string
	for _, n := range r.negotiators {
		if !n.NegotiateOrdering() {
			fallback = append(fallback, n.Kind())
		}
	}
	return fallback
}

// SetNotifier routes change events of every kind to n.
func (r *Registry) SetNotifier(n Notifier) {
	r.Equipment.SetNotifier(n)
	r.EquipmentTypes.SetNotifier(n)
	r.MaterialTypes.SetNotifier(n)
	r.Operators.SetNotifier(n)
	r.Releases.SetNotifier(n)
}
