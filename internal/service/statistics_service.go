package service

import (
	"context"
	"time"

	"procurement/internal/model"

	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates procurement metrics over the given time bracket.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	// Pending requisition items waiting for approval
	s.db.WithContext(ctx).Model(&model.RequisitionItem{}).
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.RequisitionPending, startDate, endDate).
		Count(&response.PendingRequisitionItems)

	// Purchase order counts per lifecycle status
	var statusCounts []struct {
		Status string
		Count  int
	}
	s.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&statusCounts)
	response.PurchaseOrdersByStatus = make(map[string]int, len(statusCounts))
	for _, sc := range statusCounts {
		response.PurchaseOrdersByStatus[sc.Status] = sc.Count
	}

	// Total ordered value across non-cancelled orders
	var totalOrdered struct {
		Value float64
	}
	s.db.WithContext(ctx).Table("po_line_items").
		Select("SUM(po_line_items.total_price) as value").
		Joins("JOIN purchase_orders ON purchase_orders.id = po_line_items.po_id").
		Where("purchase_orders.status NOT IN ? AND purchase_orders.created_at >= ? AND purchase_orders.created_at <= ?",
			[]string{model.POStatusRejected, model.POStatusCancelled}, startDate, endDate).
		Scan(&totalOrdered)
	response.TotalOrderedValue = totalOrdered.Value

	// Top ordered items by quantity
	var topItems []model.ItemRanking
	s.db.WithContext(ctx).Table("po_line_items").
		Select("po_line_items.item_no, MAX(po_line_items.description) as description, SUM(po_line_items.quantity) as total_quantity, SUM(po_line_items.total_price) as total_value").
		Joins("JOIN purchase_orders ON purchase_orders.id = po_line_items.po_id").
		Where("purchase_orders.status NOT IN ? AND purchase_orders.created_at >= ? AND purchase_orders.created_at <= ?",
			[]string{model.POStatusRejected, model.POStatusCancelled}, startDate, endDate).
		Group("po_line_items.item_no").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&topItems)
	response.TopOrderedItems = topItems

	return response, nil
}
