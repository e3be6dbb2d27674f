package record_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

// InventoryRepo stores one inventory kind.
type InventoryRepo[T inventory.Stocked] struct {
	*BaseRepo[T]
}

// NewInventoryRepo creates a repository over table for T.
func NewInventoryRepo[T inventory.Stocked](db QuerierProvider, table Table, newFn func() T) *InventoryRepo[T] {
	// Quantity changes only through stock movements.
	table.ReadOnlyColumns = append(table.ReadOnlyColumns, "quantity")
	return &InventoryRepo[T]{
		BaseRepo: NewBaseRepo(db, table, postgres.ExtractDBColumns[T](), newFn),
	}
}

// NewMedicineRepo creates the medicines repository.
func NewMedicineRepo(db QuerierProvider) *InventoryRepo[*inventory.Medicine] {
	return NewInventoryRepo(db, Table{
		Name:             "medicines",
		BusinessIDColumn: "medicine_id",
		SearchColumns:    []string{"medicine_id", "name", "generic_name", "batch_number"},
		DefaultOrder:     "name ASC",
		Errors: postgres.ErrorTranslator{
			Entity: "medicine",
			Constraints: map[string]string{
				"uq_medicines_medicine_id":    "medicine_id",
				"uq_medicines_batch_number":   "batch_number",
				"chk_medicines_quantity":      "quantity",
				"chk_medicines_reorder_level": "reorder_level",
				"chk_medicines_unit_price":    "unit_price",
			},
		},
	}, func() *inventory.Medicine { return &inventory.Medicine{} })
}

// NewChemicalRepo creates the chemicals repository.
func NewChemicalRepo(db QuerierProvider) *InventoryRepo[*inventory.Chemical] {
	return NewInventoryRepo(db, Table{
		Name:             "chemicals",
		BusinessIDColumn: "chemical_id",
		SearchColumns:    []string{"chemical_id", "name", "cas_number"},
		DefaultOrder:     "name ASC",
		Errors: postgres.ErrorTranslator{
			Entity: "chemical",
			Constraints: map[string]string{
				"uq_chemicals_chemical_id":    "chemical_id",
				"uq_chemicals_cas_number":     "cas_number",
				"chk_chemicals_quantity":      "quantity",
				"chk_chemicals_reorder_level": "reorder_level",
			},
		},
	}, func() *inventory.Chemical { return &inventory.Chemical{} })
}

// NewEquipmentRepo creates the equipment repository.
func NewEquipmentRepo(db QuerierProvider) *InventoryRepo[*inventory.Equipment] {
	return NewInventoryRepo(db, Table{
		Name:             "equipment",
		BusinessIDColumn: "equipment_id",
		SearchColumns:    []string{"equipment_id", "name", "serial_number", "model"},
		DefaultOrder:     "name ASC",
		Errors: postgres.ErrorTranslator{
			Entity: "equipment",
			Constraints: map[string]string{
				"uq_equipment_equipment_id":  "equipment_id",
				"uq_equipment_serial_number": "serial_number",
				"chk_equipment_status":       "status",
				"chk_equipment_quantity":     "quantity",
			},
		},
	}, func() *inventory.Equipment { return &inventory.Equipment{} })
}

func inventoryConditions(f inventory.Filter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.Category != "" {
		conds = append(conds, squirrel.Eq{"category": f.Category})
	}
	if f.LowStock {
		conds = append(conds, squirrel.Expr("quantity <= reorder_level"))
	}
	if f.ExpiringWithinDays != nil {
		conds = append(conds,
			squirrel.Expr("expiry_date IS NOT NULL AND expiry_date <= CURRENT_DATE + ?::int", *f.ExpiringWithinDays))
	}
	return conds
}

// List retrieves items matching f.
func (r *InventoryRepo[T]) List(ctx context.Context, f inventory.Filter) (domain.ListResult[T], error) {
	return r.BaseRepo.List(ctx, f.ListFilter, inventoryConditions(f)...)
}
