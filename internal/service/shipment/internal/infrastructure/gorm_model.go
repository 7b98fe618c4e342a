package infrastructure

import (
	"time"

	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/domain"
)

// ShipmentModel 对应数据库中的 shipments 表
type ShipmentModel struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	OrderID        uint64     `gorm:"not null;uniqueIndex"`
	Carrier        string     `gorm:"size:64;not null"`
	TrackingNumber string     `gorm:"size:128;not null"`
	Status         string     `gorm:"size:16;not null;index"`
	CreatedAt      time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false"`
}

func (ShipmentModel) TableName() string {
	return "shipments"
}

func toDomainShipment(m *ShipmentModel) *domain.Shipment {
	s := &domain.Shipment{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Carrier:        m.Carrier,
		TrackingNumber: m.TrackingNumber,
		Status:         domain.Status(m.Status),
		CreatedAt:      m.CreatedAt.UTC(),
	}
	if m.UpdatedAt != nil {
		at := m.UpdatedAt.UTC()
		s.UpdatedAt = &at
	}
	return s
}

func fromDomainShipment(s *domain.Shipment) *ShipmentModel {
	m := &ShipmentModel{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
	}
	if s.UpdatedAt != nil {
		at := *s.UpdatedAt
		m.UpdatedAt = &at
	}
	return m
}
