package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/domain"
)

var SortableColumns = map[string]string{
	"id":        "id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"orderId":   "order_id",
	"status":    "status",
	"carrier":   "carrier",
}

// GormShipmentRepository 是 ShipmentRepository 的 GORM 实现
type GormShipmentRepository struct {
	db *gorm.DB
}

func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

func AutoMigrate(db *gorm.DB) error {
	return pkgerrors.Wrap(db.AutoMigrate(&ShipmentModel{}), "migrate shipments")
}

func (r *GormShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	model := fromDomainShipment(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "insert shipment")
	}
	s.ID = model.ID
	return nil
}

func (r *GormShipmentRepository) FindByID(ctx context.Context, id uint64) (*domain.Shipment, error) {
	var model ShipmentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, pkgerrors.Wrapf(err, "select shipment %d", id)
	}
	return toDomainShipment(&model), nil
}

func (r *GormShipmentRepository) FindPage(ctx context.Context, req pagination.Request) ([]*domain.Shipment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ShipmentModel{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count shipments")
	}
	if total == 0 || int64(req.Offset()) >= total {
		return []*domain.Shipment{}, total, nil
	}

	query := r.db.WithContext(ctx).Model(&ShipmentModel{})
	column, ok := req.Sort.ColumnIn(SortableColumns)
	if ok && column != "id" {
		query = query.
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: req.Sort.Direction == pagination.Desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	} else {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: ok && req.Sort.Direction == pagination.Desc})
	}

	var models []ShipmentModel
	if err := query.Offset(req.Offset()).Limit(req.Size).Find(&models).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "select shipment page")
	}
	out := make([]*domain.Shipment, len(models))
	for i := range models {
		out[i] = toDomainShipment(&models[i])
	}
	return out, total, nil
}

func (r *GormShipmentRepository) UpdateStatus(ctx context.Context, id uint64, from, to domain.Status, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&ShipmentModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{"status": string(to), "updated_at": at})
	if res.Error != nil {
		return false, pkgerrors.Wrapf(res.Error, "update shipment %d status", id)
	}
	return res.RowsAffected == 1, nil
}
