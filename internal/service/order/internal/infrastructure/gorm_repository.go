// internal/service/order/internal/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// SortableColumns maps the API sort keys to columns of the orders table.
var SortableColumns = map[string]string{
	"id":        "id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"amount":    "amount",
	"status":    "status",
	"email":     "email",
}

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// AutoMigrate creates or updates the orders table.
func AutoMigrate(db *gorm.DB) error {
	return pkgerrors.Wrap(db.AutoMigrate(&OrderModel{}), "migrate orders")
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := fromDomainOrder(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "insert order")
	}
	order.ID = model.ID
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrapf(err, "select order %d", id)
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindPage(ctx context.Context, req pagination.Request) ([]*domain.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}
	if total == 0 || int64(req.Offset()) >= total {
		return []*domain.Order{}, total, nil
	}

	query := r.db.WithContext(ctx).Model(&OrderModel{})
	column, ok := req.Sort.ColumnIn(SortableColumns)
	if ok && column != "id" {
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   req.Sort.Direction == pagination.Desc,
		})
		// id 作为稳定排序的兜底
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	} else {
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: "id"},
			Desc:   ok && req.Sort.Direction == pagination.Desc,
		})
	}

	var models []OrderModel
	if err := query.Offset(req.Offset()).Limit(req.Size).Find(&models).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "select order page")
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toDomainOrder(&models[i])
	}
	return orders, total, nil
}

// UpdateStatus 使用条件更新实现 compare-and-swap：只有状态仍为 from 时才会写入。
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uint64, from, to domain.Status, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrapf(res.Error, "update order %d status", id)
	}
	return res.RowsAffected == 1, nil
}
