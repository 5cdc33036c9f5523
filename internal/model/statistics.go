package model

import "time"

// ItemRanking ranks an item by ordered quantity and value within a time range.
type ItemRanking struct {
	ItemNo        string  `json:"item_no"`
	Description   string  `json:"description"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}

// StatisticsResponse aggregates procurement KPIs for a reporting window.
type StatisticsResponse struct {
	TimeRangeStartDate      time.Time      `json:"time_range_start_date"`
	TimeRangeEndDate        time.Time      `json:"time_range_end_date"`
	PendingRequisitionItems int64          `json:"pending_requisition_items"`
	PurchaseOrdersByStatus  map[string]int `json:"purchase_orders_by_status"`
	TotalOrderedValue       float64        `json:"total_ordered_value"`
	TopOrderedItems         []ItemRanking  `json:"top_ordered_items"`
}
