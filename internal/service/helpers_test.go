package service

import (
	"context"
	"testing"

	"procurement/internal/model"
	"procurement/internal/repository"
	ws "procurement/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory database. A single connection keeps
// sqlite transactions serialized the way row locks do on postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RequisitionItem{},
		&model.MasterEntry{},
		&model.PurchaseOrder{},
		&model.POLineItem{},
		&model.InwardRecord{},
		&model.InventoryItem{},
		&model.LocationStock{},
		&model.AllocationRecord{},
		&model.RevisionEntry{},
		&model.AuditLog{},
	))
	return db
}

// testEnv wires the full service stack against one test database.
type testEnv struct {
	db *gorm.DB

	requisitionRepo repository.RequisitionRepository
	masterRepo      repository.MasterEntryRepository
	poRepo          repository.PurchaseOrderRepository
	inwardRepo      repository.InwardRepository
	inventoryRepo   repository.InventoryRepository
	revisionRepo    repository.RevisionRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager

	requisitions RequisitionService
	verification VerificationService
	purchaseOrds PurchaseOrderService
	inward       InwardService
	inventory    InventoryService
	allocations  AllocationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	env := &testEnv{
		db:              db,
		requisitionRepo: repository.NewRequisitionRepository(db),
		masterRepo:      repository.NewMasterEntryRepository(db),
		poRepo:          repository.NewPurchaseOrderRepository(db),
		inwardRepo:      repository.NewInwardRepository(db),
		inventoryRepo:   repository.NewInventoryRepository(db),
		revisionRepo:    repository.NewRevisionRepository(db),
		auditRepo:       repository.NewAuditRepository(db),
		txManager:       repository.NewTransactionManager(db),
	}

	hub := ws.NewHub()
	go hub.Run()

	env.requisitions = NewRequisitionService(env.requisitionRepo, env.revisionRepo, env.auditRepo, env.txManager)
	env.verification = NewVerificationService(env.requisitionRepo, env.masterRepo, env.inventoryRepo, env.auditRepo, env.txManager)
	env.purchaseOrds = NewPurchaseOrderService(env.poRepo, env.masterRepo, env.revisionRepo, env.auditRepo, env.txManager, hub)
	env.inward = NewInwardService(env.poRepo, env.inwardRepo, env.inventoryRepo, env.auditRepo, env.txManager, hub)
	env.inventory = NewInventoryService(env.inventoryRepo, env.auditRepo, env.txManager)
	env.allocations = NewAllocationService(env.inventoryRepo, env.auditRepo, env.txManager, hub)
	return env
}

func (e *testEnv) actor() string {
	return uuid.New().String()
}

// seedStock creates an inventory item with the given quantity at one location.
func (e *testEnv) seedStock(t *testing.T, itemNo, location string, qty int) *model.InventoryItem {
	t.Helper()
	ctx := context.Background()

	item := &model.InventoryItem{ItemNo: itemNo, Description: itemNo, Unit: "pcs", TotalStock: qty}
	require.NoError(t, e.inventoryRepo.CreateItem(ctx, item))
	require.NoError(t, e.inventoryRepo.CreateLocation(ctx, &model.LocationStock{
		InventoryItemID: item.ID,
		Location:        location,
		Total:           qty,
		Available:       qty,
	}))
	return item
}

// seedBatch creates a requisition batch with one item per quantity given.
func (e *testEnv) seedBatch(t *testing.T, batchID, projectCode string, quantities map[string]int) []RequisitionItemResponse {
	t.Helper()

	req := CreateBatchRequest{BatchID: batchID, ProjectCode: projectCode}
	for itemNo, qty := range quantities {
		req.Items = append(req.Items, RequisitionLineRequest{
			ItemNo:           itemNo,
			Description:      "test " + itemNo,
			RequiredQuantity: qty,
			Unit:             "pcs",
		})
	}

	items, err := e.requisitions.CreateBatch(context.Background(), e.actor(), req)
	require.NoError(t, err)
	return items
}
