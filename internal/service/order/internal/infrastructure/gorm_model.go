// internal/service/order/internal/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Email       string    `gorm:"size:254;not null"`
	Amount      float64   `gorm:"type:decimal(12,2);not null"`
	Description string    `gorm:"size:500"`
	Status      string    `gorm:"size:16;not null;index"`
	CreatedAt   time.Time `gorm:"not null;index;autoCreateTime:false"`
	// 状态第一次变更之前保持 NULL，由仓储显式写入
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// toDomainOrder 将数据库模型转换为领域模型
func toDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	o := &domain.Order{
		ID:          model.ID,
		Email:       model.Email,
		Amount:      model.Amount,
		Description: model.Description,
		Status:      domain.Status(model.Status),
		CreatedAt:   model.CreatedAt.UTC(),
	}
	if model.UpdatedAt != nil {
		at := model.UpdatedAt.UTC()
		o.UpdatedAt = &at
	}
	return o
}

// fromDomainOrder 将领域模型转换为数据库模型 (用于插入)
func fromDomainOrder(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	m := &OrderModel{
		ID:          o.ID,
		Email:       o.Email,
		Amount:      o.Amount,
		Description: o.Description,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
	if o.UpdatedAt != nil {
		at := *o.UpdatedAt
		m.UpdatedAt = &at
	}
	return m
}
