package repository

import (
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) ListActive() ([]model.SubscriptionPlan, error) {
	var plans []model.SubscriptionPlan
	err := r.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) GetByID(id int64) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) GetByName(name string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.db.Where("name = ?", name).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Create(plan *model.SubscriptionPlan) error {
	return r.db.Create(plan).Error
}

func (r *PlanRepository) Update(plan *model.SubscriptionPlan) error {
	return r.db.Save(plan).Error
}
