package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
)

type testRecord struct {
	entity.BaseEntity
	Code  string `db:"code" json:"code"`
	Name  string `db:"name" json:"name"`
	Notes string `json:"notes"`
	Skip  string `db:"-"`
}

type testDocument struct {
	entity.Document
	Number string `db:"number"`
}

func TestExtractDBColumns_FlattensEmbedded(t *testing.T) {
	cols := ExtractDBColumns[testRecord]()

	assert.Equal(t, []string{
		"id", "deletion_mark", "version", "created_at", "updated_at", "created_by", "updated_by",
		"code", "name",
	}, cols)
}

func TestExtractDBColumns_NestedEmbedding(t *testing.T) {
	cols := ExtractDBColumns[*testDocument]()

	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "status")
	assert.Contains(t, cols, "comment")
	assert.Equal(t, "number", cols[len(cols)-1])
}

func TestStructToMap(t *testing.T) {
	rec := &testRecord{
		BaseEntity: entity.BaseEntity{
			ID:           id.New(),
			DeletionMark: true,
			Version:      5,
		},
		Code:  "MED00001",
		Name:  "Paracetamol",
		Notes: "not stored",
	}

	m := StructToMap(rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "MED00001", m["code"])
	assert.Equal(t, "Paracetamol", m["name"])
	assert.NotContains(t, m, "notes")
	assert.NotContains(t, m, "-")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*testRecord)(nil)))
}

func TestColumnsExcept(t *testing.T) {
	cols := []string{"id", "version", "name", "created_at"}
	assert.Equal(t, []string{"name"}, ColumnsExcept(cols, "id", "version", "created_at"))
}
